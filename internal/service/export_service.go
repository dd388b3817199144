package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"mindscreen_backend/internal/model"
	"mindscreen_backend/internal/repository"
	"mindscreen_backend/internal/util"
	"mindscreen_backend/pkg/logger"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const exportLinkExpiry = time.Hour

type ExportService struct {
	Responses      *repository.ResponseRepository
	Questionnaires *repository.QuestionnaireRepository
	Storage        *StorageService
}

func NewExportService(responses *repository.ResponseRepository, questionnaires *repository.QuestionnaireRepository, storage *StorageService) *ExportService {
	return &ExportService{Responses: responses, Questionnaires: questionnaires, Storage: storage}
}

type ExportResult struct {
	FileName string `json:"fileName"`
	URL      string `json:"url"`
	Rows     int    `json:"rows"`
}

var exportHeader = []string{
	"response_id", "respondent_ref", "questionnaire_version", "status",
	"started_at", "completed_at", "score", "risk_level", "flagged", "flag_reasons",
}

// Export 导出问卷全部已评分答卷为 CSV，每题一列
func (s *ExportService) Export(ctx context.Context, questionnaireID uint) (*ExportResult, error) {
	if _, err := s.Questionnaires.FindByID(questionnaireID); err != nil {
		return nil, notFound(err, util.ErrQuestionnaireNotFound)
	}
	responses, err := s.Responses.ListScored(questionnaireID)
	if err != nil {
		return nil, err
	}
	if len(responses) == 0 {
		return nil, util.ErrExportEmpty
	}

	data, err := buildCSV(responses)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("exports/questionnaire-%d/%s-%s.csv",
		questionnaireID, time.Now().Format("20060102-150405"), uuid.New().String()[:8])
	if _, err := s.Storage.Upload(ctx, name, bytes.NewReader(data), int64(len(data)), util.MimeCSV); err != nil {
		return nil, err
	}
	url, err := s.Storage.DownloadURL(ctx, name, exportLinkExpiry)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Responses exported",
		zap.Uint("questionnaireId", questionnaireID),
		zap.Int("rows", len(responses)),
		zap.String("file", name))
	return &ExportResult{FileName: name, URL: url, Rows: len(responses)}, nil
}

// questionColumns 按快照中题目顺序合并各版本的题目列
func questionColumns(responses []model.Response) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, r := range responses {
		for _, q := range r.Snapshot.Data().Questionnaire.Questions {
			if !seen[q.ID] {
				seen[q.ID] = true
				cols = append(cols, q.ID)
			}
		}
	}
	return cols
}

func buildCSV(responses []model.Response) ([]byte, error) {
	cols := questionColumns(responses)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(append(append([]string(nil), exportHeader...), cols...)); err != nil {
		return nil, err
	}

	for _, r := range responses {
		values := make(map[string]string, len(r.Answers))
		for _, a := range r.Answers {
			values[a.QuestionID] = answerText(a.Value)
		}

		completedAt := ""
		if r.CompletedAt != nil {
			completedAt = r.CompletedAt.Format(util.TimeFormat)
		}
		row := []string{
			r.ID,
			r.RespondentRef,
			fmt.Sprintf("%d", r.QuestionnaireVersion),
			string(r.Status),
			r.StartedAt.Format(util.TimeFormat),
			completedAt,
			util.FormatFloat(r.Score),
			r.RiskLevel,
			fmt.Sprintf("%t", r.FlaggedForReview),
			strings.Join(r.FlagReasons, ";"),
		}
		for _, c := range cols {
			row = append(row, values[c])
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// answerText 将 JSON 答案转为单元格文本，多选用分号连接
func answerText(raw []byte) string {
	v, err := decodeValue(json.RawMessage(raw))
	if err != nil {
		return string(raw)
	}
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ";")
	default:
		return fmt.Sprint(x)
	}
}
