package model

import (
	"fmt"
	"time"
)

// TestPackage is the sealed artifact's metadata: everything a test-taking
// client needs except the raster images, which travel beside it in the
// archive. Before sealing this is plaintext JSON; after sealing, everything
// except the security envelope is ciphertext.
type TestPackage struct {
	TestName       string     `json:"testName"`
	TotalQuestions int        `json:"totalQuestions"`
	CreatedAt      time.Time  `json:"createdAt"`
	Questions      []Question `json:"questions"`

	// MissingImages lists image paths referenced by questions but absent
	// from the archive. Populated at unpack time only; a missing image is a
	// data-quality defect, not a protocol error.
	MissingImages []string `json:"-"`
}

// Validate checks the package is sealable: a name, a consistent count, and
// every question individually exportable.
func (p *TestPackage) Validate() error {
	if p.TestName == "" {
		return fmt.Errorf("test name is required")
	}
	if len(p.Questions) == 0 {
		return fmt.Errorf("package has no questions")
	}
	if p.TotalQuestions != len(p.Questions) {
		return fmt.Errorf("totalQuestions %d does not match question list length %d",
			p.TotalQuestions, len(p.Questions))
	}
	for i := range p.Questions {
		if err := p.Questions[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// PackageRecord is the registry row kept for every sealed package so the
// authoring side can list what it has produced. The archive itself is the
// distributable; the registry stores only cleartext facts about it.
type PackageRecord struct {
	ID             string    `json:"id"`
	TestName       string    `json:"test_name"`
	TotalQuestions int       `json:"total_questions"`
	SizeBytes      int64     `json:"size_bytes"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreatePackageRequest is the authoring payload for sealing a package.
type CreatePackageRequest struct {
	TestName  string     `json:"test_name" binding:"required,min=1,max=255"`
	Password  string     `json:"password" binding:"required,min=4"`
	Questions []Question `json:"questions" binding:"required,min=1"`
}

// OpenPackageRequest accompanies an uploaded archive at unseal time.
type OpenPackageRequest struct {
	Password string `json:"password" binding:"required"`
}
