// Package export writes group and ownership data for use outside the app.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/ramonehamilton/cardfinder/internal/groups"
	"github.com/ramonehamilton/cardfinder/internal/ownership"
)

// Format represents the export format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", s)
	}
}

// GroupCard is one row of a flattened group export.
type GroupCard struct {
	Group    string `json:"group" yaml:"group" csv:"group"`
	Name     string `json:"name" yaml:"name" csv:"name"`
	Position int    `json:"position" yaml:"position" csv:"position"`
	CD       string `json:"cd" yaml:"cd" csv:"cd"`
}

// OwnedCard is one row of an ownership export.
type OwnedCard struct {
	CD       string `json:"cd" yaml:"cd" csv:"cd"`
	Normal   int    `json:"normal" yaml:"normal" csv:"normal"`
	Shine    int    `json:"shine" yaml:"shine" csv:"shine"`
	Premium  int    `json:"premium" yaml:"premium" csv:"premium"`
	Total    int    `json:"total" yaml:"total" csv:"total"`
	Capacity int    `json:"capacity" yaml:"capacity" csv:"capacity"`
}

// GroupRows flattens exported groups into one row per card, keeping group
// order. Empty groups produce no rows.
func GroupRows(list []groups.Exported) []GroupCard {
	var rows []GroupCard
	for i, g := range list {
		for _, cd := range g.Cards {
			rows = append(rows, GroupCard{Group: g.ID, Name: g.Name, Position: i, CD: cd})
		}
	}
	return rows
}

// OwnershipRows lists owned cards sorted by id.
func OwnershipRows(store *ownership.Store) []OwnedCard {
	doc := store.All()
	ids := lo.Keys(doc)
	slices.Sort(ids)

	rows := make([]OwnedCard, 0, len(ids))
	for _, cd := range ids {
		e := doc[cd]
		rows = append(rows, OwnedCard{
			CD:       cd,
			Normal:   e.Normal,
			Shine:    e.Shine,
			Premium:  e.Premium,
			Total:    e.Total(),
			Capacity: store.Capacity(cd, ""),
		})
	}
	return rows
}

// Write encodes data to w. CSV requires a slice of structs and always
// writes the header row.
func Write(w io.Writer, format Format, data interface{}) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(data)
	case FormatCSV:
		return writeCSV(w, data)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

// WriteFile writes data to path, creating parent directories. An existing
// file is replaced only when overwrite is set.
func WriteFile(path string, format Format, data interface{}, overwrite bool) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if _, statErr := os.Stat(path); statErr == nil && !overwrite {
		return fmt.Errorf("file already exists: %s", path)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return Write(file, format, data)
}

// Filename builds a default file name such as groups_20240101_120000.csv.
func Filename(kind string, format Format, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", kind, now.Format("20060102_150405"), format)
}

func writeCSV(w io.Writer, data interface{}) error {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Slice {
		return fmt.Errorf("CSV export requires a slice, got %s", v.Kind())
	}

	elemType := v.Type().Elem()
	if elemType.Kind() == reflect.Ptr {
		elemType = elemType.Elem()
	}
	if elemType.Kind() != reflect.Struct {
		return fmt.Errorf("CSV export requires a slice of structs")
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader(elemType)); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i := 0; i < v.Len(); i++ {
		elem := reflect.Indirect(v.Index(i))
		if err := writer.Write(csvRow(elem)); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func csvHeader(t reflect.Type) []string {
	var header []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Tag.Get("csv") == "-" {
			continue
		}
		if tag := field.Tag.Get("csv"); tag != "" {
			header = append(header, tag)
		} else {
			header = append(header, field.Name)
		}
	}
	return header
}

func csvRow(v reflect.Value) []string {
	var row []string
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Tag.Get("csv") == "-" {
			continue
		}
		row = append(row, csvValue(v.Field(i)))
	}
	return row
}

func csvValue(v reflect.Value) string {
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}
