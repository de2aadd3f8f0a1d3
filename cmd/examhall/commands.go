package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pavelanni/examhall/internal/analytics"
	"github.com/pavelanni/examhall/internal/auth"
	"github.com/pavelanni/examhall/internal/exam"
	"github.com/pavelanni/examhall/internal/model"
	"github.com/pavelanni/examhall/internal/sheet"
	"github.com/pavelanni/examhall/internal/store"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Create tests from JSON definitions or xlsx question sheets",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
	commonFlags(cmd)
	f := cmd.Flags()
	f.String("as", "", "Email of the admin recorded as the test author (required)")
	f.String("title", "", "Test title for xlsx files (default: file name)")
	f.String("description", "", "Test description for xlsx files")
	f.String("branch", "", "Restrict xlsx tests to a branch")
	f.Int("duration", 30, "Duration in minutes for xlsx tests")
	f.Int("questions-per-student", 0, "Questions drawn per student for xlsx tests (0 = all)")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a test's results as xlsx or JSON",
		RunE:  runExport,
	}
	commonFlags(cmd)
	f := cmd.Flags()
	f.String("test-id", "", "Test to export (required)")
	f.String("branch", "", "Only include students of this branch")
	f.String("format", "xlsx", "Output format (xlsx, json)")
	f.Float64("pass-mark", analytics.DefaultPassMark, "Percentage at or above which an attempt passes")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	_ = cmd.MarkFlagRequired("test-id")
	return cmd
}

func addUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create an admin or student account",
		RunE:  runAddUser,
	}
	commonFlags(cmd)
	f := cmd.Flags()
	f.String("name", "", "Display name (required)")
	f.String("email", "", "Login email (required)")
	f.String("password", "", "Password (required)")
	f.String("role", string(model.UserRoleStudent), "Role (admin, student)")
	f.String("student-id", "", "Institution roll number")
	f.String("branch", "", "Branch or department")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func runImport(cmd *cobra.Command, paths []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	author, err := db.GetUserByEmail(ctx, v.GetString("as"))
	if err != nil {
		return fmt.Errorf("look up author: %w", err)
	}
	if author == nil || author.Role != model.UserRoleAdmin {
		return fmt.Errorf("%s is not an admin account", v.GetString("as"))
	}
	svc := exam.NewService(db)

	for _, path := range paths {
		if err := importFile(ctx, db, svc, exam.ActorFromUser(author), path, v.GetString("title"),
			v.GetString("description"), v.GetString("branch"), v.GetInt("duration"), v.GetInt("questions-per-student")); err != nil {
			return err
		}
	}
	return nil
}

// importFile creates one test from path. Files are tracked by content hash:
// an unchanged file is skipped, and so is a changed one, since students may
// already hold attempts on the test it produced.
func importFile(ctx context.Context, db *store.Store, svc *exam.Service, author exam.Actor,
	path, title, description, branch string, duration, perStudent int,
) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	hash := sha256sum(data)
	rec, err := db.GetImportRecord(ctx, path)
	if err != nil {
		return fmt.Errorf("check import status for %s: %w", path, err)
	}
	if rec != nil && rec.Hash == hash {
		slog.Info("file unchanged, skipping", "path", path, "test_id", rec.TestID)
		return nil
	}
	if rec != nil {
		slog.Warn("file changed since last import, skipping to avoid breaking existing attempts",
			"path", path, "test_id", rec.TestID)
		return nil
	}

	var nt exam.NewTest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &nt); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".xlsx":
		questions, err := sheet.ParseQuestions(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		nt = exam.NewTest{
			Title:       title,
			Description: description,
			Branch:      branch,
			Questions:   questions,
			Duration:    duration,
		}
		if perStudent > 0 {
			nt.QuestionsPerStudent = &perStudent
		}
	default:
		return fmt.Errorf("%s: unsupported file type (want .json or .xlsx)", path)
	}

	t, err := svc.CreateTest(ctx, author, nt)
	if err != nil {
		return fmt.Errorf("create test from %s: %w", path, err)
	}
	if err := db.SetImportRecord(ctx, path, hash, t.ID); err != nil {
		return fmt.Errorf("record import for %s: %w", path, err)
	}
	slog.Info("imported test", "path", path, "test_id", t.ID, "questions", len(t.Questions))
	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	testID := v.GetString("test-id")
	reports := analytics.New(db, v.GetFloat64("pass-mark"))
	report, err := reports.TestReport(ctx, testID, v.GetString("branch"))
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}
	t, err := db.FindTestByID(ctx, testID)
	if err != nil {
		return fmt.Errorf("find test: %w", err)
	}

	var buf bytes.Buffer
	switch strings.ToLower(v.GetString("format")) {
	case "json":
		export := model.ResultsExport{
			TestID:       testID,
			Title:        report.Title,
			ExportedAt:   time.Now().UTC(),
			NumQuestions: len(t.Questions),
			Report:       report,
		}
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(export); err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
	case "xlsx":
		if err := sheet.WriteResults(&buf, analytics.ByPercentage(report.Attempts), reports.Passed); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q (want xlsx or json)", v.GetString("format"))
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	slog.Info("exported results", "test_id", testID, "attempts", report.TotalAttempts, "output", outPath)
	return nil
}

func runAddUser(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	role := model.UserRole(strings.ToLower(v.GetString("role")))
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", role)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	hash, err := auth.HashPassword(v.GetString("password"))
	if err != nil {
		return err
	}
	id, err := db.CreateUser(ctx, model.User{
		Name:         v.GetString("name"),
		Email:        v.GetString("email"),
		PasswordHash: hash,
		Role:         role,
		StudentID:    v.GetString("student-id"),
		Branch:       v.GetString("branch"),
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s %d (%s)\n", role, id, store.NormalizeEmail(v.GetString("email")))
	return nil
}
