package packaging

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/quizforge/quizforge-backend/internal/model"
)

const (
	metadataEntry = "encrypted_metadata.bin"
	securityEntry = "security.json"
	imageDir      = "images/"
)

// ErrInvalidPackageFormat means the archive is missing a required internal
// file. This indicates a non-package file, not a wrong password, and is
// surfaced before any password is even relevant.
var ErrInvalidPackageFormat = errors.New("invalid package format: not a test package")

// securityFile is the cleartext envelope entry inside the archive.
type securityFile struct {
	Salt string `json:"salt"`
	IV   string `json:"iv"`
}

// UnpackedPackage is the result of a successful unpack: the decrypted
// metadata plus every image the archive actually carried.
type UnpackedPackage struct {
	Package *model.TestPackage
	Images  map[string][]byte // archive path -> PNG bytes
}

// Codec packs and unpacks the distributable test-package container: a zip
// archive holding the AEAD ciphertext, the cleartext security envelope, and
// one raster image per question.
type Codec struct {
	sealer *Sealer
}

// NewCodec creates a Codec over the given crypto provider.
func NewCodec(provider CryptoProvider) *Codec {
	return &Codec{sealer: NewSealer(provider)}
}

// Pack validates the package, seals its metadata JSON under password, and
// writes the archive. images maps the archive path ("images/Q3.png") to PNG
// bytes; every question must have been resolved to an image path first.
func (c *Codec) Pack(pkg *model.TestPackage, password string, images map[string][]byte) ([]byte, error) {
	if err := pkg.Validate(); err != nil {
		return nil, fmt.Errorf("validate package: %w", err)
	}

	for i := range pkg.Questions {
		q := &pkg.Questions[i]
		if q.ID == "" {
			// The runtime keys answers and timers by question id, so every
			// sealed question must carry one.
			q.ID = uuid.NewString()
		}
		q.ImagePath = ImagePathFor(q.Number)
		q.Crop = nil // crop rectangles are authoring-side only
	}

	plaintext, err := json.Marshal(pkg)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	ciphertext, env, err := c.sealer.Seal(plaintext, password)
	if err != nil {
		return nil, err
	}

	sec, err := json.Marshal(securityFile{
		Salt: base64.StdEncoding.EncodeToString(env.Salt),
		IV:   base64.StdEncoding.EncodeToString(env.IV),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal security envelope: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := writeEntry(zw, metadataEntry, ciphertext); err != nil {
		return nil, err
	}
	if err := writeEntry(zw, securityEntry, sec); err != nil {
		return nil, err
	}
	for i := range pkg.Questions {
		path := pkg.Questions[i].ImagePath
		img, ok := images[path]
		if !ok {
			return nil, fmt.Errorf("question %d: image %s not provided", pkg.Questions[i].Number, path)
		}
		if err := writeEntry(zw, path, img); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Unpack reads an archive, unseals the metadata with password, and resolves
// question images. A missing individual image is tolerated: it is recorded
// in Package.MissingImages and the question proceeds without a raster.
func (c *Codec) Unpack(data []byte, password string) (*UnpackedPackage, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPackageFormat, err)
	}

	entries := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		entries[f.Name] = f
	}

	metaFile, hasMeta := entries[metadataEntry]
	secFile, hasSec := entries[securityEntry]
	if !hasMeta || !hasSec {
		return nil, ErrInvalidPackageFormat
	}

	secRaw, err := readEntry(secFile)
	if err != nil {
		return nil, err
	}
	var sec securityFile
	if err := json.Unmarshal(secRaw, &sec); err != nil {
		return nil, fmt.Errorf("%w: bad security envelope", ErrInvalidPackageFormat)
	}
	salt, err := base64.StdEncoding.DecodeString(sec.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: bad salt encoding", ErrInvalidPackageFormat)
	}
	iv, err := base64.StdEncoding.DecodeString(sec.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: bad iv encoding", ErrInvalidPackageFormat)
	}

	ciphertext, err := readEntry(metaFile)
	if err != nil {
		return nil, err
	}

	plaintext, err := c.sealer.Unseal(ciphertext, password, Envelope{Salt: salt, IV: iv})
	if err != nil {
		return nil, err
	}

	var pkg model.TestPackage
	if err := json.Unmarshal(plaintext, &pkg); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}

	images := make(map[string][]byte, len(pkg.Questions))
	for i := range pkg.Questions {
		path := pkg.Questions[i].ImagePath
		if path == "" {
			path = ImagePathFor(pkg.Questions[i].Number)
			pkg.Questions[i].ImagePath = path
		}
		f, ok := entries[path]
		if !ok {
			pkg.MissingImages = append(pkg.MissingImages, path)
			continue
		}
		img, err := readEntry(f)
		if err != nil {
			pkg.MissingImages = append(pkg.MissingImages, path)
			continue
		}
		images[path] = img
	}

	return &UnpackedPackage{Package: &pkg, Images: images}, nil
}

// ImagePathFor returns the archive path for a question's raster image.
func ImagePathFor(number int) string {
	return fmt.Sprintf("%sQ%d.png", imageDir, number)
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", f.Name, err)
	}
	return data, nil
}
