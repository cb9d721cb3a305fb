package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool { return &v }

func TestNew_NormalizesAndFilters(t *testing.T) {
	cat := New([]Card{
		{CD: "1", Name: "Ancient One", Race: OldGodRace},
		{CD: "00002", Name: "Old Print", IsLatest: boolPtr(false)},
		{CD: "2", Name: "New Print", IsLatest: boolPtr(true)},
		{CD: "", Name: "No ID"},
		{CD: "00001", Name: "Duplicate"},
	})

	require.Equal(t, 2, cat.Len())

	card, ok := cat.Lookup("1")
	require.True(t, ok)
	assert.Equal(t, "00001", card.CD)
	assert.Equal(t, "Ancient One", card.Name)

	card, ok = cat.Lookup("00002")
	require.True(t, ok)
	assert.Equal(t, "New Print", card.Name)

	race, ok := cat.Race("00001")
	assert.True(t, ok)
	assert.Equal(t, OldGodRace, race)

	_, ok = cat.Race("99999")
	assert.False(t, ok)
}

func TestNilCatalog(t *testing.T) {
	var cat *Catalog
	assert.Equal(t, 0, cat.Len())
	assert.Nil(t, cat.Cards())
	_, ok := cat.Lookup("1")
	assert.False(t, ok)
}

func TestHaystack(t *testing.T) {
	cat := New([]Card{{
		CD:          "10",
		Name:        "Ｄｒａｇｏｎ Lord",
		Race:        "ドラゴン",
		Category:    "Beast",
		EffectNames: []string{"Fanfare"},
		EffectTexts: []string{"Draw a card."},
	}})

	card, ok := cat.Lookup("10")
	require.True(t, ok)

	hay := card.Haystack()
	assert.Contains(t, hay, "dragon lord")
	assert.Contains(t, hay, "ドラゴン")
	assert.Contains(t, hay, "beast")
	assert.Contains(t, hay, "fanfare")
	assert.Contains(t, hay, "draw a card.")

	loose := Card{Name: "ABC"}
	assert.Equal(t, "abc", strings.TrimSpace(loose.Haystack()))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "abc", Fold("ＡＢＣ"))
	assert.Equal(t, "カート", Fold("ｶｰﾄ"))
	assert.Equal(t, "旧神", Fold("旧神"))
}

func TestPackEnglishName(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"BP01 Eternal Dawn「永遠の夜明け」", "BP01 Eternal Dawn"},
		{"Starter Deck スターター", "Starter Deck"},
		{"Promo", "Promo"},
		{"  Spaced  ", "Spaced"},
		{"旧神の目覚め", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PackEnglishName(tt.label), tt.label)
	}
}

func TestCardFlag(t *testing.T) {
	card := Card{Draw: true, PowerDown: true}
	assert.True(t, card.Flag(FlagDraw))
	assert.True(t, card.Flag(FlagPowerDown))
	assert.False(t, card.Flag(FlagHeal))
	assert.False(t, card.Flag(Flag("unknown")))
}

func TestDecode_JSON(t *testing.T) {
	cards, err := Decode(strings.NewReader(`[{"cd":"1","name":"A","cost":3,"draw":true}]`), FormatJSON)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, 3, cards[0].Cost)
	assert.True(t, cards[0].Draw)

	cards, err = Decode(strings.NewReader(`{"cards":[{"cd":"2"},{"cd":"3"}]}`), FormatJSON)
	require.NoError(t, err)
	assert.Len(t, cards, 2)

	_, err = Decode(strings.NewReader(`{"cards":`), FormatJSON)
	assert.Error(t, err)
}

func TestDecode_YAML(t *testing.T) {
	doc := `
cards:
  - cd: "5"
    name: Golem
    race: 人間
    power: 4000
    heal: true
`
	cards, err := Decode(strings.NewReader(doc), FormatYAML)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Golem", cards[0].Name)
	assert.Equal(t, 4000, cards[0].Power)
	assert.True(t, cards[0].Heal)

	cards, err = Decode(strings.NewReader("- cd: \"6\"\n"), FormatYAML)
	require.NoError(t, err)
	assert.Len(t, cards, 1)
}

func TestDecode_CSV(t *testing.T) {
	doc := "cd,name,race,cost,power,effectName1,effectName2,effectTexts,draw,isLatest\n" +
		"1,Seer,人間,2,1000,Fanfare,,Look at the top card|Draw,○,1\n" +
		"2,Old,人間,-,,,,,0,0\n"

	cards, err := Decode(strings.NewReader(doc), FormatCSV)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	assert.Equal(t, 2, cards[0].Cost)
	assert.Equal(t, []string{"Fanfare"}, cards[0].EffectNames)
	assert.Equal(t, []string{"Look at the top card", "Draw"}, cards[0].EffectTexts)
	assert.True(t, cards[0].Draw)
	assert.True(t, cards[0].Latest())

	assert.Equal(t, 0, cards[1].Cost)
	assert.False(t, cards[1].Latest())

	_, err = Decode(strings.NewReader("cd,cost\n1,abc\n"), FormatCSV)
	assert.Error(t, err)
}

func TestDecode_CSVWithByteOrderMark(t *testing.T) {
	doc := "\ufeffcd,name,race\n7,Seer,人間\n"

	cards, err := Decode(strings.NewReader(doc), FormatCSV)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Seer", cards[0].Name)
	assert.NotEmpty(t, cards[0].CD)
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("cards.YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = FormatFromPath("cards.xml")
	assert.Error(t, err)
}

func TestSource_ReplaceNotifies(t *testing.T) {
	src := NewSource(nil)
	assert.Equal(t, 0, src.Current().Len())

	var seen []int
	unsubscribe := src.OnReload(func(c *Catalog) { seen = append(seen, c.Len()) })

	src.Replace(New([]Card{{CD: "1", Race: OldGodRace}}))
	race, ok := src.Race("1")
	assert.True(t, ok)
	assert.Equal(t, OldGodRace, race)

	unsubscribe()
	src.Replace(New(nil))

	assert.Equal(t, []int{1}, seen)
}

func TestWatcher_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"cd":"1"},{"cd":"2"}]`), 0o644))

	src := NewSource(nil)
	w := NewWatcher(path, src, nil)
	require.NoError(t, w.Reload())
	assert.Equal(t, 2, src.Current().Len())

	// A broken file keeps the previous snapshot
	require.NoError(t, os.WriteFile(path, []byte(`[{`), 0o644))
	assert.Error(t, w.Reload())
	assert.Equal(t, 2, src.Current().Len())
}

func TestWatcher_RunPicksUpChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"cd":"1"}]`), 0o644))

	src := NewSource(nil)
	w := NewWatcher(path, src, nil)
	require.NoError(t, w.Reload())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to register before writing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`[{"cd":"1"},{"cd":"2"},{"cd":"3"}]`), 0o644))

	assert.Eventually(t, func() bool { return src.Current().Len() == 3 }, 5*time.Second, 50*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
