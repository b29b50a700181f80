package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/quizforge/quizforge-backend/internal/packaging"
	"golang.org/x/term"
)

// packtool seals and unseals test packages on disk without a running server.
//
//	packtool seal -manifest test.json -images ./images -out test.qfpkg
//	packtool unseal -in test.qfpkg -out ./extracted
func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "seal":
		err = runSeal(os.Args[2:])
	case "unseal":
		err = runUnseal(os.Args[2:])
	default:
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: packtool <seal|unseal> [flags]")
	fmt.Println("  seal   -manifest <json> [-images <dir>] -out <file>")
	fmt.Println("  unseal -in <file> -out <dir>")
}

// manifestFile is the authoring input: the test metadata plus questions.
type manifestFile struct {
	TestName  string           `json:"testName"`
	Questions []model.Question `json:"questions"`
}

func runSeal(args []string) error {
	fs := flag.NewFlagSet("seal", flag.ExitOnError)
	manifestPath := fs.String("manifest", "", "Path to the manifest JSON")
	imagesDir := fs.String("images", "", "Directory with QN.png question images")
	outPath := fs.String("out", "", "Output package file")
	fs.Parse(args)

	if *manifestPath == "" || *outPath == "" {
		return fmt.Errorf("-manifest and -out are required")
	}

	raw, err := os.ReadFile(*manifestPath)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	var manifest manifestFile
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	images := make(map[string][]byte)
	if *imagesDir != "" {
		for i := range manifest.Questions {
			n := manifest.Questions[i].Number
			data, err := os.ReadFile(filepath.Join(*imagesDir, fmt.Sprintf("Q%d.png", n)))
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return fmt.Errorf("read image for question %d: %w", n, err)
			}
			images[packaging.ImagePathFor(n)] = data
		}
	}

	password, err := promptPassword("Package password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	pkg := &model.TestPackage{
		TestName:       manifest.TestName,
		TotalQuestions: len(manifest.Questions),
		CreatedAt:      time.Now().UTC(),
		Questions:      manifest.Questions,
	}

	codec := packaging.NewCodec(packaging.NewAESGCMProvider())
	archive, err := codec.Pack(pkg, password, images)
	if err != nil {
		return err
	}

	if err := os.WriteFile(*outPath, archive, 0o644); err != nil {
		return fmt.Errorf("write package: %w", err)
	}

	fmt.Printf("Sealed %q: %d questions, %d images, %d bytes\n",
		pkg.TestName, len(pkg.Questions), len(images), len(archive))
	return nil
}

func runUnseal(args []string) error {
	fs := flag.NewFlagSet("unseal", flag.ExitOnError)
	inPath := fs.String("in", "", "Package file to unseal")
	outDir := fs.String("out", "", "Output directory")
	fs.Parse(args)

	if *inPath == "" || *outDir == "" {
		return fmt.Errorf("-in and -out are required")
	}

	data, err := os.ReadFile(*inPath)
	if err != nil {
		return fmt.Errorf("read package: %w", err)
	}

	password, err := promptPassword("Package password: ")
	if err != nil {
		return err
	}

	codec := packaging.NewCodec(packaging.NewAESGCMProvider())
	unpacked, err := codec.Unpack(data, password)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	metaOut, err := json.MarshalIndent(unpacked.Package, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(*outDir, "metadata.json"), metaOut, 0o644); err != nil {
		return err
	}

	for path, img := range unpacked.Images {
		name := strings.ReplaceAll(path, "/", "_")
		if err := os.WriteFile(filepath.Join(*outDir, name), img, 0o644); err != nil {
			return err
		}
	}

	fmt.Printf("Unsealed %q: %d questions, %d images\n",
		unpacked.Package.TestName, len(unpacked.Package.Questions), len(unpacked.Images))
	if len(unpacked.Package.MissingImages) > 0 {
		fmt.Printf("Warning: %d referenced images missing from the archive\n",
			len(unpacked.Package.MissingImages))
	}
	return nil
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}
