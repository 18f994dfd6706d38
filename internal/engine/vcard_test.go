package engine_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/birthday-board/internal/config"
	"github.com/tartampluch/birthday-board/internal/engine"
)

func TestParseVCards(t *testing.T) {
	input := `BEGIN:VCARD
VERSION:4.0
FN:John Doe
BDAY:1990-03-15
END:VCARD
BEGIN:VCARD
VERSION:4.0
FN:No Birthday
END:VCARD
BEGIN:VCARD
VERSION:4.0
FN:Voice Actor
BDAY:--0229
CATEGORIES:friends,cv
END:VCARD
BEGIN:VCARD
VERSION:3.0
FN:Basic Format
BDAY:19851124
END:VCARD
BEGIN:VCARD
VERSION:4.0
FN:Broken
BDAY:sometime in spring
END:VCARD
BEGIN:VCARD
VERSION:4.0
N:Doe;Jane;;;
BDAY:--12-25
END:VCARD
`

	records, skipped, err := engine.ParseVCards(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, records, 4)

	assert.Equal(t, engine.BirthdayRecord{
		Name: "John Doe", Month: time.March, Day: 15,
		Category: engine.CategoryCharacter, OriginalText: "1990-03-15",
	}, records[0])

	assert.Equal(t, "Voice Actor", records[1].Name)
	assert.Equal(t, time.February, records[1].Month)
	assert.Equal(t, 29, records[1].Day)
	assert.Equal(t, engine.CategoryPerformer, records[1].Category)

	assert.Equal(t, time.November, records[2].Month)
	assert.Equal(t, 24, records[2].Day)

	assert.Equal(t, "Doe;Jane;;;", records[3].Name, "N is used when FN is absent")
	assert.Equal(t, time.December, records[3].Month)

	require.Len(t, skipped, 1)
	assert.Equal(t, 5, skipped[0].Line, "line is the card ordinal")
	assert.Equal(t, "sometime in spring", skipped[0].Text)
	assert.ErrorIs(t, skipped[0], engine.ErrInvalidDate)
}

func TestParseVCards_FallbackName(t *testing.T) {
	input := "BEGIN:VCARD\r\nVERSION:4.0\r\nBDAY:2000-01-01\r\nEND:VCARD\r\n"

	records, skipped, err := engine.ParseVCards(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, records, 1)
	assert.Equal(t, config.FallbackName, records[0].Name)
}

func TestParseVCards_MalformedStreamKeepsPrefix(t *testing.T) {
	input := `BEGIN:VCARD
VERSION:4.0
FN:Kept
BDAY:2000-01-01
END:VCARD
this is not a vcard
`

	records, skipped, err := engine.ParseVCards(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "Kept", records[0].Name)
	require.Len(t, skipped, 1)
	assert.Equal(t, 2, skipped[0].Line)
	assert.Contains(t, skipped[0].Error(), config.ErrVCardParse)
}

func TestParseVCards_Empty(t *testing.T) {
	records, skipped, err := engine.ParseVCards(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, skipped)
}
