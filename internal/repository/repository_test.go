package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"mindscreen_backend/internal/model"
	"mindscreen_backend/internal/scoring"
	"mindscreen_backend/internal/util"
	"mindscreen_backend/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func f(v float64) *float64 { return &v }

func seedQuestionnaire(t *testing.T, repo *QuestionnaireRepository) *model.Questionnaire {
	t.Helper()
	q := &model.Questionnaire{Title: "PHQ-2", Type: "phq2", Version: 1}
	require.NoError(t, repo.Create(q))
	for i, code := range []string{"interest", "mood"} {
		require.NoError(t, repo.CreateQuestion(&model.Question{
			QuestionnaireID: q.ID,
			Code:            code,
			Text:            code,
			QuestionType:    string(scoring.SingleChoice),
			Required:        true,
			Order:           2 - i,
			Options: datatypes.NewJSONSlice([]model.QuestionOption{
				{Label: "Not at all", Value: "0", Score: f(0)},
				{Label: "Nearly every day", Value: "3", Score: f(3)},
			}),
		}))
	}
	return q
}

func TestQuestionnaireRepository_QuestionsBumpVersion(t *testing.T) {
	repo := NewQuestionnaireRepository(newTestDB(t))
	q := seedQuestionnaire(t, repo)

	loaded, err := repo.FindByID(q.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Version)
	require.Len(t, loaded.Questions, 2)
	// 按 order 排序
	assert.Equal(t, "mood", loaded.Questions[0].Code)
	assert.Equal(t, 3.0, *loaded.Questions[0].Options[1].Score)
	assert.Nil(t, loaded.Scoring)

	exists, err := repo.CodeExists(q.ID, "mood", 0)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.CodeExists(q.ID, "mood", loaded.Questions[0].ID)
	require.NoError(t, err)
	assert.False(t, exists)

	deleted := loaded.Questions[0].ID
	question, err := repo.FindQuestionByID(deleted)
	require.NoError(t, err)
	assert.Equal(t, q.ID, question.QuestionnaireID)

	require.NoError(t, repo.DeleteQuestion(&loaded.Questions[0]))
	loaded, err = repo.FindByID(q.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Version)
	assert.Len(t, loaded.Questions, 1)

	_, err = repo.FindQuestionByID(deleted)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestQuestionnaireRepository_SaveScoringConfigUpserts(t *testing.T) {
	repo := NewQuestionnaireRepository(newTestDB(t))
	q := seedQuestionnaire(t, repo)

	cfg := scoring.Config{
		Method:     scoring.MethodSum,
		Ranges:     []scoring.Range{{Min: 0, Max: f(2), Label: "low"}, {Min: 3, Label: "high"}},
		FlagPolicy: scoring.FlagPolicy{FlagOnRiskLevels: []string{"high"}},
	}
	require.NoError(t, repo.SaveScoringConfig(model.NewScoringConfig(q.ID, cfg)))

	cfg.Method = scoring.MethodAverage
	cfg.PassingScore = f(1)
	require.NoError(t, repo.SaveScoringConfig(model.NewScoringConfig(q.ID, cfg)))

	stored, err := repo.FindScoringConfig(q.ID)
	require.NoError(t, err)
	got := stored.ToScoring()
	assert.Equal(t, scoring.MethodAverage, got.Method)
	assert.Equal(t, 1.0, *got.PassingScore)
	assert.Equal(t, []string{"high"}, got.FlagPolicy.FlagOnRiskLevels)
	require.Len(t, got.Ranges, 2)
	assert.Nil(t, got.Ranges[1].Max)

	var count int64
	repo.DB.Model(&model.ScoringConfig{}).Count(&count)
	assert.Equal(t, int64(1), count)

	loaded, err := repo.FindByID(q.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.Version)
	require.NotNil(t, loaded.Scoring)
}

func TestQuestionnaireRepository_List(t *testing.T) {
	repo := NewQuestionnaireRepository(newTestDB(t))
	require.NoError(t, repo.Create(&model.Questionnaire{Title: "a", IsActive: true, Version: 1}))
	require.NoError(t, repo.Create(&model.Questionnaire{Title: "b", Version: 1}))

	all, total, err := repo.List(1, 10, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	active, total, err := repo.List(1, 10, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "a", active[0].Title)
}

func newResponse(t *testing.T, repo *ResponseRepository, questionnaireID uint) *model.Response {
	t.Helper()
	resp := &model.Response{
		QuestionnaireID:      questionnaireID,
		QuestionnaireVersion: 1,
		Status:               model.ResponseInProgress,
		Snapshot:             datatypes.NewJSONType(model.Snapshot{}),
		FlagReasons:          datatypes.NewJSONSlice([]string{}),
		StartedAt:            time.Now(),
	}
	require.NoError(t, repo.Create(resp))
	return resp
}

func TestResponseRepository_SaveAnswers(t *testing.T) {
	repo := NewResponseRepository(newTestDB(t))
	resp := newResponse(t, repo, 1)

	require.NoError(t, repo.SaveAnswers(resp.ID, []model.Answer{
		{QuestionID: "mood", Value: datatypes.JSON(`"0"`)},
		{QuestionID: "interest", Value: datatypes.JSON(`"3"`)},
	}, nil))
	// 覆盖并清除
	require.NoError(t, repo.SaveAnswers(resp.ID, []model.Answer{
		{QuestionID: "mood", Value: datatypes.JSON(`"3"`)},
	}, []string{"interest"}))

	loaded, err := repo.FindByID(resp.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Answers, 1)
	assert.Equal(t, "mood", loaded.Answers[0].QuestionID)
	assert.JSONEq(t, `"3"`, string(loaded.Answers[0].Value))
}

func TestResponseRepository_CompleteOnlyOnce(t *testing.T) {
	repo := NewResponseRepository(newTestDB(t))
	resp := newResponse(t, repo, 1)
	require.NoError(t, repo.SaveAnswers(resp.ID, []model.Answer{
		{QuestionID: "mood", Value: datatypes.JSON(`"3"`)},
		{QuestionID: "note", Value: datatypes.JSON(`"tired"`)},
	}, nil))

	now := time.Now()
	resp.ApplyResult(&scoring.Result{Score: 3, RiskLevel: "high", Flagged: true, FlagReasons: []string{"risk_level"}})
	resp.CompletedAt = &now
	require.NoError(t, repo.Complete(resp, map[string]*float64{"mood": f(3)}))

	err := repo.Complete(resp, nil)
	assert.ErrorIs(t, err, util.ErrResponseCompleted)

	err = repo.SaveAnswers(resp.ID, []model.Answer{{QuestionID: "mood", Value: datatypes.JSON(`"0"`)}}, nil)
	assert.ErrorIs(t, err, util.ErrResponseCompleted)

	loaded, err := repo.FindByID(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ResponseCompleted, loaded.Status)
	assert.Equal(t, 3.0, *loaded.Score)
	assert.Equal(t, []string{"risk_level"}, []string(loaded.FlagReasons))
	for _, a := range loaded.Answers {
		if a.QuestionID == "mood" {
			assert.Equal(t, 3.0, *a.Score)
		} else {
			assert.Nil(t, a.Score)
		}
	}
}

func TestResponseRepository_FlaggedAndReview(t *testing.T) {
	repo := NewResponseRepository(newTestDB(t))

	flagged := newResponse(t, repo, 7)
	flagged.ApplyResult(&scoring.Result{Score: 20, RiskLevel: "severe", Flagged: true, FlagReasons: []string{"risk_level"}})
	require.NoError(t, repo.Complete(flagged, nil))

	calm := newResponse(t, repo, 7)
	calm.ApplyResult(&scoring.Result{Score: 1, RiskLevel: "minimal", FlagReasons: []string{}})
	require.NoError(t, repo.Complete(calm, nil))

	newResponse(t, repo, 7)

	list, total, err := repo.ListFlagged(FlaggedFilter{QuestionnaireID: 7}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, flagged.ID, list[0].ID)

	require.NoError(t, repo.MarkReviewed(flagged.ID, 42, "called patient", time.Now()))
	assert.Error(t, repo.MarkReviewed(flagged.ID, 42, "again", time.Now()))

	_, total, err = repo.ListFlagged(FlaggedFilter{QuestionnaireID: 7}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	_, total, err = repo.ListFlagged(FlaggedFilter{QuestionnaireID: 7, IncludeReviewed: true, RiskLevel: "severe"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	scored, err := repo.ListScored(7)
	require.NoError(t, err)
	assert.Len(t, scored, 2)
}

func TestResponseRepository_ApplyRescoreWritesAudit(t *testing.T) {
	repo := NewResponseRepository(newTestDB(t))
	resp := newResponse(t, repo, 1)
	resp.ApplyResult(&scoring.Result{Score: 4, RiskLevel: "low", FlagReasons: []string{}})
	require.NoError(t, repo.Complete(resp, nil))

	resp.ApplyResult(&scoring.Result{Score: 9, RiskLevel: "high", Flagged: true, FlagReasons: []string{"risk_level"}})
	audit := &model.ScoreAudit{ResponseID: resp.ID, Actor: "dr.who", Reason: "range fix", OldScore: f(4), NewScore: f(9)}
	require.NoError(t, repo.ApplyRescore(resp, nil, audit))

	loaded, err := repo.FindByID(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, 9.0, *loaded.Score)
	assert.True(t, loaded.FlaggedForReview)
	assert.Equal(t, model.ResponseCompleted, loaded.Status)

	audits, err := repo.ListAudits(resp.ID)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, "dr.who", audits[0].Actor)
}
