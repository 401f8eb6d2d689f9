// Package seed bulk-loads librarians, readers and loans from the
// semicolon-delimited text files kept under data/. Every row goes through
// the same service Create a client request would, so a bad row is logged
// and skipped rather than aborting the load.
package seed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fabio-stoppa/sistema-biblioteca/internal/data"
	"github.com/fabio-stoppa/sistema-biblioteca/internal/validator"
)

// File names looked up by LoadDir, in load order.
const (
	LibrariansFile = "librarians.txt"
	ReadersFile    = "readers.txt"
	LoansFile      = "loans.txt"
)

// LibrarianCreator registers librarians.
type LibrarianCreator interface {
	Create(ctx context.Context, l *data.Librarian) (*data.Librarian, error)
}

// ReaderCreator registers readers and resolves them by tax id, which is how
// loan rows refer to their reader.
type ReaderCreator interface {
	Create(ctx context.Context, r *data.Reader) (*data.Reader, error)
	FindByTaxID(ctx context.Context, taxID string) (*data.Reader, error)
}

// LoanCreator records loans.
type LoanCreator interface {
	Create(ctx context.Context, l *data.Loan) (*data.Loan, error)
}

// Result summarises one file.
type Result struct {
	File    string `json:"file"`
	Loaded  int    `json:"loaded"`
	Skipped int    `json:"skipped"`
}

// Loader feeds seed rows to the services.
type Loader struct {
	librarians LibrarianCreator
	readers    ReaderCreator
	loans      LoanCreator
	logger     *slog.Logger
}

// NewLoader returns a Loader. A nil logger discards output.
func NewLoader(librarians LibrarianCreator, readers ReaderCreator, loans LoanCreator, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{librarians: librarians, readers: readers, loans: loans, logger: logger}
}

// LoadDir loads the librarians, readers and loans files found in dir, in
// that order. A missing file is reported and skipped.
func (ld *Loader) LoadDir(ctx context.Context, dir string) ([]Result, error) {
	steps := []struct {
		name string
		load func(context.Context, io.Reader) (Result, error)
	}{
		{LibrariansFile, ld.LoadLibrarians},
		{ReadersFile, ld.LoadReaders},
		{LoansFile, ld.LoadLoans},
	}

	results := make([]Result, 0, len(steps))
	for _, step := range steps {
		path := filepath.Join(dir, step.name)
		f, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			ld.logger.Warn("seed file not found", "file", path)
			continue
		}
		if err != nil {
			return results, err
		}

		res, err := step.load(ctx, f)
		f.Close()
		res.File = step.name
		results = append(results, res)
		if err != nil {
			return results, fmt.Errorf("%s: %w", step.name, err)
		}
		ld.logger.Info("seed file loaded", "file", path, "loaded", res.Loaded, "skipped", res.Skipped)
	}
	return results, nil
}

// LoadLibrarians reads rows of
// name;email;tax_id;phone;registration_number;employee_code;postal_code;street;complement;number;district;city;state;state_name;salary;active;shift
func (ld *Loader) LoadLibrarians(ctx context.Context, r io.Reader) (Result, error) {
	return ld.load(ctx, r, LibrariansFile, 16, func(fields []string) error {
		l, err := parseLibrarian(fields)
		if err != nil {
			return err
		}
		v := validator.New()
		if data.ValidateLibrarian(v, l); !v.Valid() {
			return validationError(v)
		}
		_, err = ld.librarians.Create(ctx, l)
		return err
	})
}

// LoadReaders reads rows of
// name;email;tax_id;phone;registration_number;loyalty_tier;credit_limit;last_reading_date;postal_code;street;complement;number;district;city;state
func (ld *Loader) LoadReaders(ctx context.Context, r io.Reader) (Result, error) {
	return ld.load(ctx, r, ReadersFile, 15, func(fields []string) error {
		rd, err := parseReader(fields)
		if err != nil {
			return err
		}
		v := validator.New()
		if data.ValidateReader(v, rd); !v.Valid() {
			return validationError(v)
		}
		_, err = ld.readers.Create(ctx, rd)
		return err
	})
}

// LoadLoans reads rows of
// reader_tax_id;book_title;author;isbn;loan_date;due_date;actual_return_date;returned
func (ld *Loader) LoadLoans(ctx context.Context, r io.Reader) (Result, error) {
	return ld.load(ctx, r, LoansFile, 8, func(fields []string) error {
		reader, err := ld.readers.FindByTaxID(ctx, fields[0])
		if err != nil {
			return fmt.Errorf("reader with tax id %s: %w", fields[0], err)
		}
		l, err := parseLoan(reader.ID, fields)
		if err != nil {
			return err
		}
		v := validator.New()
		if data.ValidateLoan(v, l); !v.Valid() {
			return validationError(v)
		}
		_, err = ld.loans.Create(ctx, l)
		return err
	})
}

// load scans r line by line, skipping blanks and # comments, and hands each
// row with at least minFields fields to row. Row errors are logged and
// counted; only read errors and cancellation stop the load.
func (ld *Loader) load(ctx context.Context, r io.Reader, file string, minFields int, row func([]string) error) (Result, error) {
	res := Result{File: file}
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, ";")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		err := errTooFewFields(len(fields), minFields)
		if err == nil {
			err = row(fields)
		}
		if err != nil {
			res.Skipped++
			ld.logger.Warn("seed row skipped", "file", file, "line", n, "error", err.Error())
			continue
		}
		res.Loaded++
	}
	return res, sc.Err()
}

func errTooFewFields(got, want int) error {
	if got < want {
		return fmt.Errorf("expected at least %d fields, got %d", want, got)
	}
	return nil
}

func validationError(v *validator.Validator) error {
	parts := make([]string, 0, len(v.Errors))
	for field, msg := range v.Errors {
		parts = append(parts, field+" "+msg)
	}
	sort.Strings(parts)
	return fmt.Errorf("invalid row: %s", strings.Join(parts, ", "))
}
