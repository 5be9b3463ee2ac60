package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"course-payments/internal/domain"
	"course-payments/internal/domain/model"
	"course-payments/internal/domain/ports/repository"
)

// Compile-time check
var _ EligibilityUseCase = (*eligibilityUC)(nil)

// EligibilityUseCase answers whether a buyer may purchase a given
// purchasable right now. It is consulted on page view and re-invoked at
// checkout initiation; results are never cached because eligibility can
// change between the two.
type EligibilityUseCase interface {
	// Evaluate is side-effect free. A denial comes back as a decision, not
	// an error; an unknown purchasable is domain.ErrNotFound; any other
	// error is an infrastructure failure and must not be read as a denial.
	Evaluate(ctx context.Context, buyerID, purchasableID string) (model.EligibilityDecision, error)
	// ResolvePurchasable maps an id onto the course or feature it names.
	ResolvePurchasable(ctx context.Context, purchasableID string) (*model.Purchasable, error)
}

type eligibilityUC struct {
	users       repository.UserRepository
	courses     repository.CourseRepository
	features    repository.FeatureRepository
	enrollments repository.EnrollmentRepository
	grants      repository.FeatureGrantRepository
	log         *zerolog.Logger
}

func NewEligibilityUseCase(
	users repository.UserRepository,
	courses repository.CourseRepository,
	features repository.FeatureRepository,
	enrollments repository.EnrollmentRepository,
	grants repository.FeatureGrantRepository,
	logger *zerolog.Logger,
) *eligibilityUC {
	return &eligibilityUC{users: users, courses: courses, features: features, enrollments: enrollments, grants: grants, log: logger}
}

func (u *eligibilityUC) ResolvePurchasable(ctx context.Context, purchasableID string) (*model.Purchasable, error) {
	course, err := u.courses.FindByID(ctx, repository.NoTX, purchasableID)
	if err == nil {
		return &model.Purchasable{
			Type:       model.PurchasableCourse,
			ID:         course.ID,
			Title:      course.Title,
			PriceMinor: course.PriceMinor,
			Currency:   course.Currency,
		}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	feature, err := u.features.FindByID(ctx, repository.NoTX, purchasableID)
	if err != nil {
		return nil, err
	}
	return &model.Purchasable{
		Type:       model.PurchasableFeature,
		ID:         feature.ID,
		Title:      feature.Title,
		PriceMinor: feature.PriceMinor,
		Currency:   feature.Currency,
	}, nil
}

func (u *eligibilityUC) Evaluate(ctx context.Context, buyerID, purchasableID string) (model.EligibilityDecision, error) {
	var none model.EligibilityDecision

	buyer, err := u.users.FindByID(ctx, repository.NoTX, buyerID)
	if err != nil {
		return none, err
	}

	course, err := u.courses.FindByID(ctx, repository.NoTX, purchasableID)
	switch {
	case err == nil:
		return u.evaluateCourse(ctx, buyer, course)
	case errors.Is(err, domain.ErrNotFound):
		feature, ferr := u.features.FindByID(ctx, repository.NoTX, purchasableID)
		if ferr != nil {
			return none, ferr
		}
		return u.evaluateFeature(ctx, buyer, feature)
	default:
		return none, err
	}
}

func (u *eligibilityUC) evaluateCourse(ctx context.Context, buyer *model.User, course *model.Course) (model.EligibilityDecision, error) {
	if !course.Published {
		return model.Deny(model.ReasonCourseUnpublished, "course is not published"), nil
	}
	if course.OwnerID == buyer.ID {
		return model.Deny(model.ReasonOwnCourse, "course owners cannot buy their own course"), nil
	}
	if buyer.HasActiveSubscription(time.Now()) {
		return model.Deny(model.ReasonCoveredBySubscription, "an active subscription already includes this course"), nil
	}
	existing, err := u.enrollments.FindByUserAndCourse(ctx, repository.NoTX, buyer.ID, course.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return model.EligibilityDecision{}, err
	}
	if existing != nil {
		return model.Deny(model.ReasonAlreadyEnrolled, "buyer is already enrolled"), nil
	}
	return model.Allow(), nil
}

func (u *eligibilityUC) evaluateFeature(ctx context.Context, buyer *model.User, feature *model.Feature) (model.EligibilityDecision, error) {
	if !feature.Active {
		return model.Deny(model.ReasonFeatureInactive, "feature is not available for purchase"), nil
	}
	owned, err := u.grants.Exists(ctx, repository.NoTX, buyer.ID, feature.ID)
	if err != nil {
		return model.EligibilityDecision{}, err
	}
	if owned {
		return model.Deny(model.ReasonFeatureAlreadyOwned, "feature is already unlocked"), nil
	}
	return model.Allow(), nil
}
