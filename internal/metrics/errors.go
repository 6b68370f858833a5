package metrics

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"unicode"

	"github.com/torosent/loadtime/internal/loader"
)

// labeler is implemented by errors that name their own group.
type labeler interface {
	Label() string
}

// ErrorName groups a failed load's error under a readable label.
func ErrorName(err error) string {
	if err == nil {
		return "Unknown error"
	}

	var notFound *loader.NotFoundError
	var labeled labeler
	var pathErr *fs.PathError
	switch {
	case errors.As(err, &notFound):
		return "Unit not found"
	case errors.As(err, &labeled):
		return labeled.Label()
	case errors.As(err, &pathErr):
		return "File error"
	}

	typeName := fmt.Sprintf("%T", unwrapFormatted(err))
	if typeName == "*errors.errorString" {
		return "Init error"
	}
	return typeLabel(typeName)
}

// unwrapFormatted skips the wrappers added by fmt.Errorf("...: %w").
func unwrapFormatted(err error) error {
	for strings.HasPrefix(fmt.Sprintf("%T", err), "*fmt.wrapError") {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	return err
}

// typeLabel turns "*net.OpError" into "Op Error (net)".
func typeLabel(typeName string) string {
	name := strings.TrimPrefix(typeName, "*")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	pkg, name, ok := strings.Cut(name, ".")
	if !ok {
		name, pkg = pkg, ""
	}
	label := humanize(name)
	if pkg == "" || pkg == "main" {
		return label
	}
	return label + " (" + pkg + ")"
}

func humanize(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte(' ')
			}
		}
		if i == 0 {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
