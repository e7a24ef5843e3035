package referral

import "errors"

var (
	ErrReferralNotFound  = errors.New("referral not found")
	ErrInvalidTransition = errors.New("invalid referral status transition")
	ErrReferralClosed    = errors.New("referral is closed")
	ErrReasonRequired    = errors.New("reason is required")
	ErrInvalidPriority   = errors.New("invalid referral priority")
	ErrInvalidUrgency    = errors.New("invalid referral urgency")
	ErrInvalidStatus     = errors.New("invalid referral status")
	ErrNotAnEscalation   = errors.New("escalation must raise the referral priority")
	ErrConcurrentUpdate  = errors.New("referral was modified concurrently; reload and retry")
	ErrSameFacility      = errors.New("source and target facility must differ")
)
