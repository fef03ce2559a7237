package errs

import (
	"errors"
	"testing"
)

func TestErrorMessageIncludesCauseWhenPresent(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause, "write batch failed", ExitCatalogIO)
	want := "write batch failed: disk full"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestErrorMessageOmitsCauseWhenNil(t *testing.T) {
	err := New("invalid flag combination", ExitMisuse)
	if err.Error() != "invalid flag combination" {
		t.Fatalf("Error() = %q, want message only", err.Error())
	}
}

func TestUnwrapExposesCauseForErrorsAs(t *testing.T) {
	cause := errors.New("no such file")
	err := CatalogIO(cause)

	if !errors.Is(err, cause) {
		t.Fatal("errors.Is should find the wrapped cause via Unwrap")
	}

	var ce *CatalogError
	if !errors.As(err, &ce) {
		t.Fatal("errors.As should recover the CatalogError")
	}
	if ce.ExitCode != ExitCatalogIO {
		t.Fatalf("ExitCode = %d, want %d", ce.ExitCode, ExitCatalogIO)
	}
}

func TestTaxonomyConstructorsCarryTheirDocumentedExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  *CatalogError
		want ExitCode
	}{
		{"Config", Config("bad flag", nil), ExitMisuse},
		{"Cancelled", Cancelled(), ExitCancelled},
		{"CatalogIO", CatalogIO(errors.New("x")), ExitCatalogIO},
		{"Prune", Prune("refused"), ExitPruneFailure},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if c.err.ExitCode != c.want {
				t.Fatalf("%s ExitCode = %d, want %d", c.name, c.err.ExitCode, c.want)
			}
			if c.err.ExitCode.Int() != int(c.want) {
				t.Fatalf("%s Int() = %d, want %d", c.name, c.err.ExitCode.Int(), int(c.want))
			}
		})
	}
}
