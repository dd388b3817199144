package util

import "errors"

var (
	ErrPermissionDenied      = errors.New("permission denied")
	ErrQuestionnaireNotFound = errors.New("questionnaire not found")
	ErrQuestionNotFound      = errors.New("question not found")
	ErrQuestionnaireInactive = errors.New("questionnaire is not active")
	ErrScoringConfigMissing  = errors.New("questionnaire has no scoring config")
	ErrResponseNotFound      = errors.New("response not found")
	ErrResponseCompleted     = errors.New("response already completed")
	ErrResponseNotCompleted  = errors.New("response not completed yet")
	ErrUnknownQuestion       = errors.New("answer refers to an unknown question")
	ErrQuestionCodeConflict  = errors.New("question code already used in this questionnaire")
	ErrResponseReviewed      = errors.New("response already reviewed")
	ErrExportEmpty           = errors.New("no completed responses to export")
)
