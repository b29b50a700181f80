package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quizforge/quizforge-backend/internal/config"
	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/quizforge/quizforge-backend/internal/packaging"
	"github.com/quizforge/quizforge-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrPackageNotOpen means no unsealed package exists under the given id —
// either it was never opened or its cache entry expired.
var ErrPackageNotOpen = errors.New("package is not open")

// ErrPersistence marks a failed durable write. It is never swallowed: the
// caller must surface it even when the in-memory operation succeeded.
var ErrPersistence = errors.New("persistence failure")

// OpenedPackage is the client view of a freshly unsealed package. Correct
// options are stripped: they stay server-side until submission.
type OpenedPackage struct {
	PackageID      string           `json:"package_id"`
	TestName       string           `json:"test_name"`
	TotalQuestions int              `json:"total_questions"`
	CreatedAt      time.Time        `json:"created_at"`
	Questions      []model.Question `json:"questions"`
	MissingImages  []string         `json:"missing_images,omitempty"`
}

// PackageService orchestrates sealing and unsealing of test packages.
type PackageService struct {
	cfg     *config.Config
	codec   *packaging.Codec
	pkgRepo *repository.PackageRepository
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewPackageService creates a new PackageService.
func NewPackageService(
	cfg *config.Config,
	codec *packaging.Codec,
	pkgRepo *repository.PackageRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *PackageService {
	return &PackageService{
		cfg:     cfg,
		codec:   codec,
		pkgRepo: pkgRepo,
		rdb:     rdb,
		log:     log.With().Str("component", "package_service").Logger(),
	}
}

// Seal validates and seals an authored package. images maps archive paths
// ("images/Q1.png") to PNG bytes; pages maps page numbers to full-page
// rasters, from which any question carrying a crop rectangle gets its image
// clipped. Per-question images win over page crops when both are supplied.
func (s *PackageService) Seal(ctx context.Context, req *model.CreatePackageRequest, images map[string][]byte, pages map[int][]byte) ([]byte, *model.PackageRecord, error) {
	pkg := &model.TestPackage{
		TestName:       req.TestName,
		TotalQuestions: len(req.Questions),
		CreatedAt:      time.Now().UTC(),
		Questions:      req.Questions,
	}

	if images == nil {
		images = make(map[string][]byte)
	}
	for i := range pkg.Questions {
		q := &pkg.Questions[i]
		path := packaging.ImagePathFor(q.Number)
		if _, ok := images[path]; ok {
			continue
		}
		if q.Crop == nil {
			return nil, nil, fmt.Errorf("question %d: no image and no crop rectangle", q.Number)
		}
		raster, ok := pages[q.Crop.Page]
		if !ok {
			return nil, nil, fmt.Errorf("question %d: page %d raster not provided", q.Number, q.Crop.Page)
		}
		img, err := packaging.CropQuestionImage(raster, *q.Crop)
		if err != nil {
			return nil, nil, fmt.Errorf("question %d: %w", q.Number, err)
		}
		images[path] = img
	}

	archive, err := s.codec.Pack(pkg, req.Password, images)
	if err != nil {
		return nil, nil, err
	}

	record := &model.PackageRecord{
		ID:             uuid.New().String(),
		TestName:       pkg.TestName,
		TotalQuestions: pkg.TotalQuestions,
		SizeBytes:      int64(len(archive)),
	}
	if err := s.pkgRepo.Create(ctx, record); err != nil {
		// A sealed archive with no registry row is still usable; losing the
		// row is a persistence failure the caller must hear about.
		return nil, nil, fmt.Errorf("%w: register package: %v", ErrPersistence, err)
	}

	s.log.Info().
		Str("package_id", record.ID).
		Str("test_name", record.TestName).
		Int("questions", record.TotalQuestions).
		Msg("Package sealed")

	return archive, record, nil
}

// Open unseals an uploaded archive and caches the result so an attempt can
// start against it. The full metadata (correct options included) goes into
// the cache; the returned view is sanitized.
func (s *PackageService) Open(ctx context.Context, data []byte, password string) (*OpenedPackage, error) {
	unpacked, err := s.codec.Unpack(data, password)
	if err != nil {
		return nil, err
	}
	pkg := unpacked.Package

	packageID := uuid.New().String()

	raw, err := json.Marshal(pkg)
	if err != nil {
		return nil, fmt.Errorf("marshal open package: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.OpenPackageKey(packageID), raw, s.cfg.OpenPackageTTL).Err(); err != nil {
		return nil, fmt.Errorf("cache open package: %w", err)
	}
	for path, img := range unpacked.Images {
		key := config.CacheKey.PackageImageKey(packageID, path)
		if err := s.rdb.Set(ctx, key, img, s.cfg.OpenPackageTTL).Err(); err != nil {
			s.log.Warn().Err(err).Str("image", path).Msg("Failed to cache question image")
		}
	}

	if len(pkg.MissingImages) > 0 {
		s.log.Warn().
			Strs("missing", pkg.MissingImages).
			Msg("Package opened with missing question images")
	}

	view := &OpenedPackage{
		PackageID:      packageID,
		TestName:       pkg.TestName,
		TotalQuestions: pkg.TotalQuestions,
		CreatedAt:      pkg.CreatedAt,
		Questions:      sanitizeQuestions(pkg.Questions),
		MissingImages:  pkg.MissingImages,
	}
	return view, nil
}

// GetOpenPackage loads the full (unsanitized) metadata of an open package.
func (s *PackageService) GetOpenPackage(ctx context.Context, packageID string) (*model.TestPackage, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.OpenPackageKey(packageID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPackageNotOpen
	}
	if err != nil {
		return nil, fmt.Errorf("load open package: %w", err)
	}

	var pkg model.TestPackage
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return nil, fmt.Errorf("parse open package: %w", err)
	}
	return &pkg, nil
}

// GetImage loads one cached question image of an open package.
func (s *PackageService) GetImage(ctx context.Context, packageID, imagePath string) ([]byte, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.PackageImageKey(packageID, imagePath)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPackageNotOpen
	}
	if err != nil {
		return nil, fmt.Errorf("load question image: %w", err)
	}
	return raw, nil
}

// ListPackages returns the sealed-package registry, newest first.
func (s *PackageService) ListPackages(ctx context.Context) ([]model.PackageRecord, error) {
	return s.pkgRepo.List(ctx)
}

// sanitizeQuestions strips the correct options from a question list.
func sanitizeQuestions(questions []model.Question) []model.Question {
	out := make([]model.Question, len(questions))
	copy(out, questions)
	for i := range out {
		out[i].CorrectOption = ""
	}
	return out
}
