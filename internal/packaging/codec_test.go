package packaging

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/quizforge/quizforge-backend/internal/model"
)

func testPackage() *model.TestPackage {
	return &model.TestPackage{
		TestName:       "Mock Test 1",
		TotalQuestions: 2,
		CreatedAt:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Questions: []model.Question{
			{
				ID:            "q1",
				Number:        1,
				Subject:       "Physics",
				Type:          model.QuestionTypeMCQ,
				OptionsCount:  "4",
				IdealTime:     90,
				Marking:       model.MarkingScheme{Correct: 4, Incorrect: -1},
				CorrectOption: "2",
				Crop:          &model.CropRect{Page: 1, X: 0.1, Y: 0.1, Width: 0.5, Height: 0.2},
			},
			{
				ID:            "q2",
				Number:        2,
				Subject:       "Maths",
				Type:          model.QuestionTypeNAT,
				IdealTime:     120,
				Marking:       model.MarkingScheme{Correct: 4, Incorrect: 0},
				CorrectOption: "9.8",
			},
		},
	}
}

func testImages() map[string][]byte {
	return map[string][]byte{
		ImagePathFor(1): []byte("png-bytes-q1"),
		ImagePathFor(2): []byte("png-bytes-q2"),
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	codec := NewCodec(NewAESGCMProvider())

	archive, err := codec.Pack(testPackage(), "secret123", testImages())
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	unpacked, err := codec.Unpack(archive, "secret123")
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	pkg := unpacked.Package
	if pkg.TestName != "Mock Test 1" {
		t.Errorf("TestName = %q", pkg.TestName)
	}
	if len(pkg.Questions) != 2 {
		t.Fatalf("question count = %d, want 2", len(pkg.Questions))
	}
	if pkg.Questions[0].CorrectOption != "2" {
		t.Errorf("correct option lost: %q", pkg.Questions[0].CorrectOption)
	}
	if pkg.Questions[0].Crop != nil {
		t.Error("crop rectangle survived packing; it is authoring-side only")
	}
	if pkg.Questions[0].ImagePath != ImagePathFor(1) {
		t.Errorf("image path = %q, want %q", pkg.Questions[0].ImagePath, ImagePathFor(1))
	}
	if len(pkg.MissingImages) != 0 {
		t.Errorf("missing images = %v, want none", pkg.MissingImages)
	}
	if !bytes.Equal(unpacked.Images[ImagePathFor(2)], []byte("png-bytes-q2")) {
		t.Error("image bytes did not round trip")
	}
}

func TestUnpackWrongPassword(t *testing.T) {
	codec := NewCodec(NewAESGCMProvider())

	archive, err := codec.Pack(testPackage(), "right", testImages())
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	_, err = codec.Unpack(archive, "wrong")
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("err = %v, want ErrDecryptionFailed", err)
	}
}

func TestUnpackNotAZip(t *testing.T) {
	codec := NewCodec(NewAESGCMProvider())

	_, err := codec.Unpack([]byte("this is not a zip archive"), "pw")
	if !errors.Is(err, ErrInvalidPackageFormat) {
		t.Errorf("err = %v, want ErrInvalidPackageFormat", err)
	}
}

func TestUnpackMissingRequiredEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries map[string][]byte
	}{
		{"no metadata", map[string][]byte{securityEntry: []byte(`{"salt":"","iv":""}`)}},
		{"no envelope", map[string][]byte{metadataEntry: []byte("ciphertext")}},
		{"unrelated zip", map[string][]byte{"readme.txt": []byte("hello")}},
	}

	codec := NewCodec(NewAESGCMProvider())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			zw := zip.NewWriter(&buf)
			for name, data := range tt.entries {
				w, err := zw.Create(name)
				if err != nil {
					t.Fatal(err)
				}
				w.Write(data)
			}
			zw.Close()

			_, err := codec.Unpack(buf.Bytes(), "pw")
			if !errors.Is(err, ErrInvalidPackageFormat) {
				t.Errorf("err = %v, want ErrInvalidPackageFormat", err)
			}
		})
	}
}

// A package missing an individual question image must still unpack; the gap
// is recorded instead of aborting.
func TestUnpackMissingImageTolerated(t *testing.T) {
	provider := NewAESGCMProvider()
	sealer := NewSealer(provider)

	pkg := testPackage()
	for i := range pkg.Questions {
		pkg.Questions[i].ImagePath = ImagePathFor(pkg.Questions[i].Number)
	}
	plaintext, err := json.Marshal(pkg)
	if err != nil {
		t.Fatal(err)
	}
	ciphertext, env, err := sealer.Seal(plaintext, "pw")
	if err != nil {
		t.Fatal(err)
	}
	sec, _ := json.Marshal(securityFile{
		Salt: base64.StdEncoding.EncodeToString(env.Salt),
		IV:   base64.StdEncoding.EncodeToString(env.IV),
	})

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range map[string][]byte{
		metadataEntry:   ciphertext,
		securityEntry:   sec,
		ImagePathFor(1): []byte("png-bytes-q1"),
		// Q2.png deliberately absent.
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write(data)
	}
	zw.Close()

	unpacked, err := NewCodec(provider).Unpack(buf.Bytes(), "pw")
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if len(unpacked.Images) != 1 {
		t.Errorf("image count = %d, want 1", len(unpacked.Images))
	}
	missing := unpacked.Package.MissingImages
	if len(missing) != 1 || missing[0] != ImagePathFor(2) {
		t.Errorf("missing images = %v, want [%s]", missing, ImagePathFor(2))
	}
}

// Authoring manifests may omit question ids; sealing must fill them in
// because the runtime keys state by id.
func TestPackAssignsMissingQuestionIDs(t *testing.T) {
	codec := NewCodec(NewAESGCMProvider())

	pkg := testPackage()
	pkg.Questions[0].ID = ""
	pkg.Questions[1].ID = ""

	archive, err := codec.Pack(pkg, "secret123", testImages())
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	unpacked, err := codec.Unpack(archive, "secret123")
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	ids := map[string]bool{}
	for _, q := range unpacked.Package.Questions {
		if q.ID == "" {
			t.Fatalf("question %d: id not assigned", q.Number)
		}
		ids[q.ID] = true
	}
	if len(ids) != 2 {
		t.Errorf("assigned ids are not unique: %v", ids)
	}
}

func TestPackRejectsInvalidPackage(t *testing.T) {
	codec := NewCodec(NewAESGCMProvider())

	pkg := testPackage()
	pkg.TotalQuestions = 5 // inconsistent with the question list

	if _, err := codec.Pack(pkg, "pw", testImages()); err == nil {
		t.Error("Pack accepted an inconsistent package")
	}
}

func TestPackRejectsMissingImage(t *testing.T) {
	codec := NewCodec(NewAESGCMProvider())

	images := testImages()
	delete(images, ImagePathFor(2))

	if _, err := codec.Pack(testPackage(), "pw", images); err == nil {
		t.Error("Pack accepted a package with an unresolved image")
	}
}
