package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/appointment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/assessment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/facility"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/referral"
)

type AnalyticsService struct {
	assessmentRepo  assessment.Repository
	referralRepo    referral.Repository
	appointmentRepo appointment.Repository
	facilities      *FacilityService
}

func NewAnalyticsService(
	assessmentRepo assessment.Repository,
	referralRepo referral.Repository,
	appointmentRepo appointment.Repository,
	facilities *FacilityService,
) *AnalyticsService {
	return &AnalyticsService{
		assessmentRepo:  assessmentRepo,
		referralRepo:    referralRepo,
		appointmentRepo: appointmentRepo,
		facilities:      facilities,
	}
}

type OverviewQuery struct {
	FacilityID *uuid.UUID
	DateFrom   *time.Time
	DateTo     *time.Time
}

type Overview struct {
	Assessments *assessment.Statistics `json:"assessments"`
	Referrals   *referral.Statistics   `json:"referrals"`
}

func (s *AnalyticsService) Overview(ctx context.Context, q OverviewQuery) (*Overview, error) {
	as, err := s.assessmentRepo.Statistics(ctx, &assessment.StatisticsQuery{
		FacilityID: q.FacilityID, DateFrom: q.DateFrom, DateTo: q.DateTo,
	})
	if err != nil {
		return nil, fmt.Errorf("assessment statistics: %w", err)
	}
	rs, err := s.referralRepo.Statistics(ctx, &referral.StatisticsQuery{
		TargetFacilityID: q.FacilityID, DateFrom: q.DateFrom, DateTo: q.DateTo,
	})
	if err != nil {
		return nil, fmt.Errorf("referral statistics: %w", err)
	}
	return &Overview{Assessments: as, Referrals: rs}, nil
}

type FacilityAnalytics struct {
	FacilityID   uuid.UUID                               `json:"facility_id"`
	Incoming     *referral.Statistics                    `json:"incoming_referrals"`
	Outgoing     *referral.Statistics                    `json:"outgoing_referrals"`
	Appointments map[appointment.AppointmentStatus]int64 `json:"appointments_by_status"`
	Capacity     *facility.Capacity                      `json:"capacity"`
}

func (s *AnalyticsService) Facility(ctx context.Context, id uuid.UUID) (*FacilityAnalytics, error) {
	capacity, err := s.facilities.Capacity(ctx, id)
	if err != nil {
		return nil, err
	}
	in, err := s.referralRepo.Statistics(ctx, &referral.StatisticsQuery{TargetFacilityID: &id})
	if err != nil {
		return nil, fmt.Errorf("incoming referral statistics: %w", err)
	}
	out, err := s.referralRepo.Statistics(ctx, &referral.StatisticsQuery{SourceFacilityID: &id})
	if err != nil {
		return nil, fmt.Errorf("outgoing referral statistics: %w", err)
	}
	appts, err := s.appointmentRepo.CountByStatus(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("appointment counts: %w", err)
	}
	return &FacilityAnalytics{
		FacilityID:   id,
		Incoming:     in,
		Outgoing:     out,
		Appointments: appts,
		Capacity:     capacity,
	}, nil
}
