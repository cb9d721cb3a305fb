package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ramonehamilton/cardfinder/internal/catalog"
	"github.com/ramonehamilton/cardfinder/internal/groups"
	"github.com/ramonehamilton/cardfinder/internal/kv"
	"github.com/ramonehamilton/cardfinder/internal/ownership"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"json", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestGroupRows(t *testing.T) {
	rows := GroupRows([]groups.Exported{
		{ID: "fav", Name: "お気に入り", Cards: []string{"00001", "00020"}},
		{ID: "meta", Name: "メタカード", Cards: []string{}},
		{ID: "g1", Name: "Deck", Cards: []string{"00003"}},
	})

	assert.Equal(t, []GroupCard{
		{Group: "fav", Name: "お気に入り", Position: 0, CD: "00001"},
		{Group: "fav", Name: "お気に入り", Position: 0, CD: "00020"},
		{Group: "g1", Name: "Deck", Position: 2, CD: "00003"},
	}, rows)
}

func TestOwnershipRows(t *testing.T) {
	store, err := ownership.NewStore(kv.NewMemoryStore(), ownership.Options{})
	require.NoError(t, err)
	store.RememberRace("7", catalog.OldGodRace)

	_, err = store.Set("12", ownership.Entry{Normal: 2, Shine: 1})
	require.NoError(t, err)
	_, err = store.SetTotal("7", 1, "")
	require.NoError(t, err)

	assert.Equal(t, []OwnedCard{
		{CD: "00007", Normal: 1, Total: 1, Capacity: 1},
		{CD: "00012", Normal: 2, Shine: 1, Total: 3, Capacity: 3},
	}, OwnershipRows(store))
}

func TestWrite_CSV(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, FormatCSV, []GroupCard{{Group: "g1", Name: "A, B", Position: 1, CD: "00003"}})
	require.NoError(t, err)
	assert.Equal(t, "group,name,position,cd\ng1,\"A, B\",1,00003\n", buf.String())
}

func TestWrite_CSVEmptySliceWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, []OwnedCard{}))
	assert.Equal(t, "cd,normal,shine,premium,total,capacity\n", buf.String())
}

func TestWrite_CSVRejectsNonSlice(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, FormatCSV, GroupCard{}))
	assert.Error(t, Write(&buf, FormatCSV, []string{"x"}))
}

func TestWrite_JSONAndYAML(t *testing.T) {
	rows := []OwnedCard{{CD: "00001", Normal: 1, Total: 1, Capacity: 3}}

	var js bytes.Buffer
	require.NoError(t, Write(&js, FormatJSON, rows))
	var fromJSON []OwnedCard
	require.NoError(t, json.Unmarshal(js.Bytes(), &fromJSON))
	assert.Equal(t, rows, fromJSON)

	var ym bytes.Buffer
	require.NoError(t, Write(&ym, FormatYAML, rows))
	var fromYAML []OwnedCard
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &fromYAML))
	assert.Equal(t, rows, fromYAML)
}

func TestWriteFile_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "groups.json")

	require.NoError(t, WriteFile(path, FormatJSON, []string{"a"}, false))
	assert.Error(t, WriteFile(path, FormatJSON, []string{"b"}, false))
	require.NoError(t, WriteFile(path, FormatJSON, []string{"b"}, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `["b"]`, string(data))
}

func TestFilename(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "groups_20240102_030405.csv", Filename("groups", FormatCSV, now))
}
