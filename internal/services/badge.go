package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	dataagg "github.com/yungbote/learnhub-backend/internal/data/aggregates"
	"github.com/yungbote/learnhub-backend/internal/data/repos"
	types "github.com/yungbote/learnhub-backend/internal/domain"
	domainagg "github.com/yungbote/learnhub-backend/internal/domain/aggregates"
	"github.com/yungbote/learnhub-backend/internal/observability"
	"github.com/yungbote/learnhub-backend/internal/platform/dbctx"
	"github.com/yungbote/learnhub-backend/internal/platform/gcp"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
)

const (
	opCourseBadgeCreate = "course_badge.create"
	opCourseBadgeUpsert = "course_badge.upsert"
	opCourseBadgeImage  = "course_badge.image"
	opUserBadgeAward    = "user_badge.award"
)

type issueSourceKey struct{}

// WithIssueSource labels badge writes made under ctx (e.g. "reconcile") in metrics.
func WithIssueSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, issueSourceKey{}, source)
}

func issueSource(ctx context.Context) string {
	if s, ok := ctx.Value(issueSourceKey{}).(string); ok && s != "" {
		return s
	}
	return "request"
}

// IssueResult describes one Badge Issuance call. Created and Awarded are true
// only for rows written by this call.
type IssueResult struct {
	CourseBadge *types.CourseBadge
	UserBadge   *types.UserBadge
	Created     bool
	Awarded     bool
}

type UpsertCourseBadgeInput struct {
	Name        string `json:"name" validate:"omitempty,max=200"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
}

type BadgeService interface {
	// EnsureCourseBadge returns the course's badge, creating it if absent.
	EnsureCourseBadge(ctx context.Context, courseID uuid.UUID) (*types.CourseBadge, bool, error)
	// Award grants badge to user once; repeated calls return the existing row.
	Award(ctx context.Context, userID uuid.UUID, badge *types.CourseBadge) (*types.UserBadge, bool, error)
	IssueForCourse(ctx context.Context, userID, courseID uuid.UUID) (*IssueResult, error)
	GetCourseBadge(ctx context.Context, courseID uuid.UUID) (*types.CourseBadge, error)
	ListUserBadges(ctx context.Context, userID uuid.UUID) ([]*types.UserBadge, error)
	UpsertCourseBadge(ctx context.Context, courseID uuid.UUID, in UpsertCourseBadgeInput) (*types.CourseBadge, error)
	// RepairArt renders and stores the image of a badge that has none. It
	// reports false when nothing was written.
	RepairArt(ctx context.Context, badge *types.CourseBadge) (bool, error)
	CountAwarded(ctx context.Context, badgeID uuid.UUID) (int64, error)
}

type badgeService struct {
	log             *logger.Logger
	courseRepo      repos.CourseRepo
	courseBadgeRepo repos.CourseBadgeRepo
	userBadgeRepo   repos.UserBadgeRepo
	writes          dataagg.WritePolicy
	style           BadgeStyle
	artist          BadgeArtist
	bucket          gcp.BucketService
	metrics         *observability.Metrics
}

// BadgeServiceDeps groups the collaborators of NewBadgeService. Artist, Bucket
// and Metrics are optional.
type BadgeServiceDeps struct {
	CourseRepo      repos.CourseRepo
	CourseBadgeRepo repos.CourseBadgeRepo
	UserBadgeRepo   repos.UserBadgeRepo
	Writes          dataagg.WritePolicy
	Style           BadgeStyle
	Artist          BadgeArtist
	Bucket          gcp.BucketService
	Metrics         *observability.Metrics
}

func NewBadgeService(log *logger.Logger, deps BadgeServiceDeps) BadgeService {
	style := deps.Style
	if len(style.Colors) == 0 {
		style = DefaultBadgeStyle()
	}
	return &badgeService{
		log:             log.With("service", "BadgeService"),
		courseRepo:      deps.CourseRepo,
		courseBadgeRepo: deps.CourseBadgeRepo,
		userBadgeRepo:   deps.UserBadgeRepo,
		writes:          deps.Writes,
		style:           style,
		artist:          deps.Artist,
		bucket:          deps.Bucket,
		metrics:         deps.Metrics,
	}
}

func (s *badgeService) EnsureCourseBadge(ctx context.Context, courseID uuid.UUID) (*types.CourseBadge, bool, error) {
	const op = "badge.ensure_course_badge"
	if courseID == uuid.Nil {
		return nil, false, domainagg.Validation(op, "course is required")
	}
	existing, err := s.courseBadgeRepo.GetByCourseID(dbctx.New(ctx), courseID)
	if err != nil {
		return nil, false, dataagg.MapError(op, err)
	}
	if existing != nil {
		return existing, false, nil
	}

	course, err := s.courseRepo.GetByID(dbctx.New(ctx), courseID)
	if err != nil {
		return nil, false, dataagg.MapError(op, err)
	}
	if course == nil {
		return nil, false, domainagg.NotFound(op, "course %s not found", courseID)
	}

	row := s.synthesize(course)
	row.ImageURL = s.uploadArt(ctx, course, row)

	err = s.writes.Write(ctx, opCourseBadgeCreate, func(dbc dbctx.Context) error {
		return s.courseBadgeRepo.Create(dbc, row)
	})
	if err == nil {
		s.metrics.IncBadgeCreated(issueSource(ctx))
		s.log.Info("course badge created", "course_id", courseID, "badge_id", row.ID)
		return row, true, nil
	}
	if !dataagg.IsUniqueViolation(err) {
		s.metrics.IncBadgeIssueFailure("course_badge")
		s.dropArt(ctx, course.ID, row.ImageURL)
		return nil, false, dataagg.MapError(op, err)
	}
	// lost the race; the other writer's row is the definition
	winner, getErr := s.courseBadgeRepo.GetByCourseID(dbctx.New(ctx), courseID)
	if getErr != nil {
		return nil, false, dataagg.MapError(op, getErr)
	}
	if winner == nil {
		return nil, false, domainagg.NewError(domainagg.CodeInternal, op, "badge conflict reported but no row found", err)
	}
	return winner, false, nil
}

func (s *badgeService) synthesize(course *types.Course) *types.CourseBadge {
	level := types.ParseLevel(string(course.Level))
	c := s.style.ColorFor(level)
	meta, _ := json.Marshal(map[string]string{
		"level":      string(level),
		"color_name": c.Name,
		"source":     "synthesized",
	})
	return &types.CourseBadge{
		ID:          uuid.New(),
		CourseID:    course.ID,
		Name:        s.style.Name(course.Title),
		Description: s.style.Description(course.Title),
		Color:       c.Hex,
		Metadata:    datatypes.JSON(meta),
	}
}

// uploadArt renders and uploads the badge image. Failures leave the badge
// without an image.
func (s *badgeService) uploadArt(ctx context.Context, course *types.Course, row *types.CourseBadge) string {
	if s.artist == nil || s.bucket == nil {
		return ""
	}
	png, err := s.artist.Render(course.Title, s.style.ColorFor(types.ParseLevel(string(course.Level))))
	if err != nil {
		s.log.Warn("badge art render failed (ignored)", "course_id", course.ID, "error", err)
		return ""
	}
	key := BadgeImageKey(course.ID)
	if err := s.bucket.UploadFile(dbctx.New(ctx), gcp.BucketCategoryBadge, key, bytes.NewReader(png)); err != nil {
		s.log.Warn("badge art upload failed (ignored)", "course_id", course.ID, "key", key, "error", err)
		return ""
	}
	return s.bucket.GetPublicURL(gcp.BucketCategoryBadge, key)
}

// dropArt removes an uploaded image whose badge row was never written. The
// key is shared per course, so it must not run after a lost race.
func (s *badgeService) dropArt(ctx context.Context, courseID uuid.UUID, imageURL string) {
	if imageURL == "" || s.bucket == nil {
		return
	}
	key := BadgeImageKey(courseID)
	if err := s.bucket.DeleteFile(dbctx.New(ctx), gcp.BucketCategoryBadge, key); err != nil {
		s.log.Warn("orphaned badge art not removed", "course_id", courseID, "key", key, "error", err)
	}
}

func (s *badgeService) RepairArt(ctx context.Context, badge *types.CourseBadge) (bool, error) {
	const op = "badge.repair_art"
	if badge == nil || badge.ImageURL != "" || s.artist == nil || s.bucket == nil {
		return false, nil
	}
	course, err := s.courseRepo.GetByID(dbctx.New(ctx), badge.CourseID)
	if err != nil {
		return false, dataagg.MapError(op, err)
	}
	if course == nil {
		return false, domainagg.NotFound(op, "course %s not found", badge.CourseID)
	}
	url := s.uploadArt(ctx, course, badge)
	if url == "" {
		return false, domainagg.NewError(domainagg.CodeRetryable, op, "badge art could not be stored", nil)
	}
	err = s.writes.Write(ctx, opCourseBadgeImage, func(dbc dbctx.Context) error {
		return s.courseBadgeRepo.SetImageURL(dbc, badge.ID, url)
	})
	if err != nil {
		return false, dataagg.MapError(op, err)
	}
	badge.ImageURL = url
	return true, nil
}

func (s *badgeService) CountAwarded(ctx context.Context, badgeID uuid.UUID) (int64, error) {
	n, err := s.userBadgeRepo.CountByBadge(dbctx.New(ctx), badgeID)
	if err != nil {
		return 0, dataagg.MapError("badge.count_awarded", err)
	}
	return n, nil
}

func BadgeImageKey(courseID uuid.UUID) string {
	return fmt.Sprintf("course_badge/%s.png", courseID)
}

func (s *badgeService) Award(ctx context.Context, userID uuid.UUID, badge *types.CourseBadge) (*types.UserBadge, bool, error) {
	const op = "badge.award"
	if userID == uuid.Nil || badge == nil || badge.ID == uuid.Nil {
		return nil, false, domainagg.Validation(op, "user and badge are required")
	}
	existing, err := s.userBadgeRepo.Get(dbctx.New(ctx), userID, badge.ID)
	if err != nil {
		return nil, false, dataagg.MapError(op, err)
	}
	if existing != nil {
		return existing, false, nil
	}

	row := &types.UserBadge{
		ID:        uuid.New(),
		UserID:    userID,
		BadgeID:   badge.ID,
		CourseID:  badge.CourseID,
		AwardedAt: time.Now().UTC(),
	}
	err = s.writes.Write(ctx, opUserBadgeAward, func(dbc dbctx.Context) error {
		return dataagg.WithUserScope(dbc, userID, func(dbc dbctx.Context) error {
			return s.userBadgeRepo.Create(dbc, row)
		})
	})
	if err == nil {
		row.Badge = badge
		s.metrics.IncBadgeAwarded(issueSource(ctx))
		s.log.Info("badge awarded", "user_id", userID, "badge_id", badge.ID, "course_id", badge.CourseID)
		return row, true, nil
	}
	if !dataagg.IsUniqueViolation(err) {
		s.metrics.IncBadgeIssueFailure("user_badge")
		return nil, false, dataagg.MapError(op, err)
	}
	winner, getErr := s.userBadgeRepo.Get(dbctx.New(ctx), userID, badge.ID)
	if getErr != nil {
		return nil, false, dataagg.MapError(op, getErr)
	}
	if winner == nil {
		return nil, false, domainagg.NewError(domainagg.CodeInternal, op, "award conflict reported but no row found", err)
	}
	return winner, false, nil
}

func (s *badgeService) IssueForCourse(ctx context.Context, userID, courseID uuid.UUID) (*IssueResult, error) {
	badge, created, err := s.EnsureCourseBadge(ctx, courseID)
	if err != nil {
		return nil, err
	}
	ub, awarded, err := s.Award(ctx, userID, badge)
	if err != nil {
		return &IssueResult{CourseBadge: badge, Created: created}, err
	}
	return &IssueResult{CourseBadge: badge, UserBadge: ub, Created: created, Awarded: awarded}, nil
}

func (s *badgeService) GetCourseBadge(ctx context.Context, courseID uuid.UUID) (*types.CourseBadge, error) {
	const op = "badge.get_course_badge"
	row, err := s.courseBadgeRepo.GetByCourseID(dbctx.New(ctx), courseID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if row == nil {
		return nil, domainagg.NotFound(op, "course %s has no badge", courseID)
	}
	return row, nil
}

func (s *badgeService) ListUserBadges(ctx context.Context, userID uuid.UUID) ([]*types.UserBadge, error) {
	rows, err := s.userBadgeRepo.ListByUser(dbctx.New(ctx), userID)
	if err != nil {
		return nil, dataagg.MapError("badge.list_user_badges", err)
	}
	return rows, nil
}

// UpsertCourseBadge overrides a course's badge definition. Blank fields fall
// back to the synthesized defaults.
func (s *badgeService) UpsertCourseBadge(ctx context.Context, courseID uuid.UUID, in UpsertCourseBadgeInput) (*types.CourseBadge, error) {
	const op = "badge.upsert_course_badge"
	if err := validateInput(op, in); err != nil {
		return nil, err
	}
	course, err := s.courseRepo.GetByID(dbctx.New(ctx), courseID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if course == nil {
		return nil, domainagg.NotFound(op, "course %s not found", courseID)
	}

	row := s.synthesize(course)
	row.Metadata = datatypes.JSON(`{"source":"admin"}`)
	if v := strings.TrimSpace(in.Name); v != "" {
		row.Name = v
	}
	if v := strings.TrimSpace(in.Description); v != "" {
		row.Description = v
	}
	if v := strings.TrimSpace(in.Color); v != "" {
		row.Color = strings.ToUpper(v)
	}
	row.ImageURL = strings.TrimSpace(in.ImageURL)
	if row.ImageURL == "" {
		if existing, err := s.courseBadgeRepo.GetByCourseID(dbctx.New(ctx), courseID); err == nil && existing != nil {
			row.ImageURL = existing.ImageURL
		}
	}

	var stored *types.CourseBadge
	err = s.writes.Write(ctx, opCourseBadgeUpsert, func(dbc dbctx.Context) error {
		var werr error
		stored, werr = s.courseBadgeRepo.Upsert(dbc, row)
		return werr
	})
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	return stored, nil
}
