package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	apperrors "lara-bot/internal/common/errors"
	"lara-bot/internal/features/catalog"
	"lara-bot/internal/platform/forte"
)

// MaxKeyCount is the backend's cap on accumulated keys.
const MaxKeyCount = 10

const (
	msgGenericFailure  = "🔥 에러가 발생했습니다. 잠시 후 다시 시도해주세요."
	msgExistAttendance = "최근에 이미 출석체크 하셨습니다.\n`%s` 후 다시 시도해주세요."
	msgMaxKeyCount     = "열쇠는 최대 10개까지 가질 수 있습니다.\n`라라야 상자` 명령어를 입력해 열쇠를 사용해주세요."
	msgInsufficientKey = "상자를 열기에 충분한 열쇠가 없습니다."
)

// Backend is the subset of the Forte client the attendance flows need.
type Backend interface {
	GetAttendance(ctx context.Context, discordID string) (*forte.Response, error)
	PostAttendance(ctx context.Context, discordID string) (*forte.Response, error)
	Unpack(ctx context.Context, discordID, boxType string, isPremium bool) (*forte.Response, error)
}

type AttendanceService interface {
	GetKeyCount(ctx context.Context, discordID string) (int, error)
	PostAttendance(ctx context.Context, discordID string) (int, error)
	UnpackBox(ctx context.Context, discordID, boxType string, isPremium bool) (point, remainingKeys int, err error)
}

type attendanceService struct {
	backend Backend
	boxes   *catalog.Store
}

func NewAttendanceService(backend Backend, boxes *catalog.Store) AttendanceService {
	return &attendanceService{backend: backend, boxes: boxes}
}

func generic(status int) *apperrors.AppError {
	return apperrors.NewDomainError(zerolog.WarnLevel, apperrors.StatusError, msgGenericFailure).
		WithDetail("http_status", status)
}

// GetKeyCount returns 0 for users without a backend record or attendance
// history. Only transport failures are returned as errors.
func (s *attendanceService) GetKeyCount(ctx context.Context, discordID string) (int, error) {
	resp, err := s.backend.GetAttendance(ctx, discordID)
	if err != nil {
		return 0, err
	}
	if _, ok := resp.Object(); !ok {
		return 0, nil
	}
	var a forte.Attendance
	if err := resp.Decode(&a); err != nil || a.KeyCount == nil {
		return 0, nil
	}
	return *a.KeyCount, nil
}

// PostAttendance checks the user in and returns the key count afterwards.
func (s *attendanceService) PostAttendance(ctx context.Context, discordID string) (int, error) {
	resp, err := s.backend.PostAttendance(ctx, discordID)
	if err != nil {
		return 0, err
	}

	var a forte.Attendance
	if err := resp.Decode(&a); err != nil {
		return 0, generic(resp.Status)
	}
	switch resp.Status {
	case http.StatusOK, http.StatusCreated, http.StatusConflict:
	default:
		return 0, generic(resp.Status)
	}
	if a.Declares() {
		return 0, generic(resp.Status)
	}

	switch a.Status {
	case apperrors.StatusExistAttendance:
		return 0, apperrors.NewDomainError(zerolog.InfoLevel, apperrors.StatusExistAttendance,
			fmt.Sprintf(msgExistAttendance, a.DiffText())).
			WithDetail("diff", a.DiffText())
	case apperrors.StatusMaxKeyCount:
		return 0, apperrors.NewDomainError(zerolog.InfoLevel, apperrors.StatusMaxKeyCount, msgMaxKeyCount)
	}

	if a.KeyCount == nil {
		return 0, generic(resp.Status)
	}
	return *a.KeyCount, nil
}

// UnpackBox opens a box. Unknown box types are rejected before any call.
func (s *attendanceService) UnpackBox(ctx context.Context, discordID, boxType string, isPremium bool) (int, int, error) {
	if !s.boxes.Current().Has(boxType) {
		return 0, 0, apperrors.NewInvalidArgument("box", fmt.Sprintf("unknown box type %q", boxType))
	}

	resp, err := s.backend.Unpack(ctx, discordID, boxType, isPremium)
	if err != nil {
		return 0, 0, err
	}

	switch resp.Status {
	case http.StatusOK:
		var out forte.UnpackResult
		if err := resp.Decode(&out); err != nil {
			return 0, 0, generic(resp.Status)
		}
		return out.Point, out.KeyCount, nil
	case http.StatusBadRequest, http.StatusNotFound:
		return 0, 0, apperrors.NewDomainError(zerolog.InfoLevel, apperrors.StatusInsufficientKey, msgInsufficientKey)
	default:
		return 0, 0, generic(resp.Status)
	}
}
