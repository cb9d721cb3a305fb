package catalog

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format identifies a catalog file encoding.
type Format string

// Supported catalog encodings.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

// FormatFromPath guesses the encoding from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported catalog file extension %q", filepath.Ext(path))
	}
}

// LoadFile reads and decodes a catalog file.
func LoadFile(path string) (*Catalog, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	records, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return New(records), nil
}

// cardList accepts both a bare array and a {"cards": [...]} wrapper.
type cardList struct {
	Cards []Card `json:"cards" yaml:"cards"`
}

// Decode reads raw card records in the given format.
func Decode(r io.Reader, format Format) ([]Card, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	switch format {
	case FormatJSON:
		return decodeJSON(data)
	case FormatYAML:
		return decodeYAML(data)
	case FormatCSV:
		return decodeCSV(data)
	default:
		return nil, fmt.Errorf("unknown catalog format %q", format)
	}
}

func decodeJSON(data []byte) ([]Card, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped cardList
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		return wrapped.Cards, nil
	}

	var cards []Card
	if err := json.Unmarshal(trimmed, &cards); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return cards, nil
}

func decodeYAML(data []byte) ([]Card, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	if node.Content[0].Kind == yaml.MappingNode {
		var wrapped cardList
		if err := node.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		return wrapped.Cards, nil
	}

	var cards []Card
	if err := node.Decode(&cards); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return cards, nil
}

// decodeCSV reads a header row followed by one card per row. Multi-valued
// effect columns use either numbered columns (effectName1, effectName2) or a
// single column with "|" separators.
func decodeCSV(data []byte) ([]Card, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff"))))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.TrimSpace(name)] = i
	}

	cards := make([]Card, 0, len(rows)-1)
	for lineNo, row := range rows[1:] {
		get := func(col string) string {
			i, ok := header[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		cost, err := parseCSVInt(get("cost"))
		if err != nil {
			return nil, fmt.Errorf("row %d: cost: %w", lineNo+2, err)
		}
		power, err := parseCSVInt(get("power"))
		if err != nil {
			return nil, fmt.Errorf("row %d: power: %w", lineNo+2, err)
		}

		card := Card{
			CD:             get("cd"),
			Name:           get("name"),
			Race:           get("race"),
			Category:       get("category"),
			Type:           get("type"),
			Rarity:         get("rarity"),
			PackName:       get("packName"),
			Cost:           cost,
			Power:          power,
			EffectNames:    multiColumn(get, "effectNames", "effectName1", "effectName2"),
			EffectTexts:    multiColumn(get, "effectTexts", "effectText1", "effectText2"),
			Field:          get("field"),
			SpecialAbility: get("specialAbility"),
			BPFlag:         get("bpFlag"),
		}
		for _, f := range Flags {
			setFlag(&card, f, parseCSVBool(get(string(f))))
		}
		if latest := get("isLatest"); latest != "" {
			v := parseCSVBool(latest)
			card.IsLatest = &v
		}

		cards = append(cards, card)
	}

	return cards, nil
}

func multiColumn(get func(string) string, joined string, numbered ...string) []string {
	var out []string
	if v := get(joined); v != "" {
		for _, part := range strings.Split(v, "|") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	for _, col := range numbered {
		if v := get(col); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseCSVInt(s string) (int, error) {
	if s == "" || s == "-" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func parseCSVBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y", "○", "◯":
		return true
	default:
		return false
	}
}

func setFlag(c *Card, f Flag, v bool) {
	switch f {
	case FlagDraw:
		c.Draw = v
	case FlagCardSearch:
		c.CardSearch = v
	case FlagGraveyardRecovery:
		c.GraveyardRecovery = v
	case FlagDestroyOpponent:
		c.DestroyOpponent = v
	case FlagDestroySelf:
		c.DestroySelf = v
	case FlagHeal:
		c.Heal = v
	case FlagPowerUp:
		c.PowerUp = v
	case FlagPowerDown:
		c.PowerDown = v
	}
}
