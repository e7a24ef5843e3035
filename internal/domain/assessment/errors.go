package assessment

import "errors"

var (
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrScoreOutOfRange    = errors.New("risk score must be between 0 and 100")
	ErrInvalidRiskLevel   = errors.New("invalid risk level")
	ErrNotValidatable     = errors.New("assessment can no longer be validated")
	ErrNotEditable        = errors.New("assessment can no longer be edited")
	ErrDuplicateClientID  = errors.New("assessment with this mobile client id already exists")
	ErrInvalidStatus      = errors.New("invalid assessment status")
	ErrStatusNotEditable  = errors.New("status can only be set to pending, in_review or rejected; use validation or referrals for the rest")
)
