package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/kir-gadjello/gemtutor/attachment"
	"github.com/kir-gadjello/gemtutor/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix
}

func seed(t *testing.T, ix *Index) []conversation.Message {
	t.Helper()
	store := conversation.NewStore()
	msgs := []conversation.Message{
		store.Append(conversation.NewUserMessage("Jelaskan fotosintesis pada daun", []attachment.Attachment{
			{Kind: attachment.KindImage, Name: "daun.png"},
		})),
		store.Append(conversation.NewAssistantMessage("## Fotosintesis\nProses tumbuhan membuat makanan dari cahaya.")),
		store.Append(conversation.NewUserMessage("Bagaimana dengan akar?", nil)),
		store.Append(conversation.NewAssistantMessage("Akar menyerap air dan mineral dari tanah.")),
	}
	for _, m := range msgs {
		require.NoError(t, ix.Add(m))
	}
	return msgs
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"air", "air"},
		{"akar", "akar*"},
		{"fotosintesis", "fotosintesis*"},
		{"user:sel", "(role:user AND content:sel)"},
		{"user:daun", "(role:user AND content:daun*)"},
		{"ai:cahaya", "(role:assistant AND content:cahaya*)"},
		{"assistant:air", "(role:assistant AND content:air)"},
		{"user:", "role:user"},
		{`"sel hewan"`, `"sel hewan"`},
		{"sel-hewan", `"sel-hewan"`},
		{"air tanah", "air AND tanah*"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseQuery(tc.in))
		})
	}
}

func TestIndex_Search(t *testing.T) {
	ix := newIndex(t)
	msgs := seed(t, ix)

	hits, err := ix.Search("fotosintesis")
	require.NoError(t, err)
	require.Len(t, hits, 2)

	ids := []string{hits[0].MessageID, hits[1].MessageID}
	assert.ElementsMatch(t, []string{msgs[0].ID, msgs[1].ID}, ids)
	for _, h := range hits {
		assert.NotEmpty(t, h.Preview)
		assert.False(t, h.CreatedAt.IsZero())
	}
}

func TestIndex_SearchRoleFilter(t *testing.T) {
	ix := newIndex(t)
	msgs := seed(t, ix)

	hits, err := ix.Search("user:akar")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, msgs[2].ID, hits[0].MessageID)
	assert.Equal(t, "user", hits[0].Role)

	hits, err = ix.Search("ai:akar")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, msgs[3].ID, hits[0].MessageID)
	assert.Equal(t, "Akar menyerap air dan mineral dari tanah.", hits[0].Text)
}

func TestIndex_SearchPrefix(t *testing.T) {
	ix := newIndex(t)
	seed(t, ix)

	hits, err := ix.Search("miner")
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestIndex_SearchEmpty(t *testing.T) {
	ix := newIndex(t)
	_, err := ix.Search("   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestIndex_AddIsIdempotent(t *testing.T) {
	ix := newIndex(t)
	msgs := seed(t, ix)

	require.NoError(t, ix.Add(msgs[0]))
	n, err := ix.Len()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	hits, err := ix.Search("daun")
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestIndex_Reset(t *testing.T) {
	ix := newIndex(t)
	seed(t, ix)

	require.NoError(t, ix.Reset())
	n, err := ix.Len()
	require.NoError(t, err)
	assert.Zero(t, n)

	hits, err := ix.Search("akar")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_Export(t *testing.T) {
	ix := newIndex(t)
	msgs := seed(t, ix)

	var buf bytes.Buffer
	require.NoError(t, ix.Export(&buf))

	var entries []Entry
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		entries = append(entries, e)
	}
	require.Len(t, entries, len(msgs))

	for i, m := range msgs {
		assert.Equal(t, m.ID, entries[i].ID)
		assert.Equal(t, m.Author.String(), entries[i].Role)
		assert.Equal(t, m.Text, entries[i].Text)
		assert.Equal(t, m.CreatedAt.UnixMilli(), entries[i].TS)
	}
	assert.Equal(t, []string{"daun.png"}, entries[0].Attachments)
	assert.Empty(t, entries[1].Attachments)
}

func TestSnippet(t *testing.T) {
	text := "aaaaaaaaaa kata bbbbbbbbbb"
	assert.Equal(t, "…aaa kata bbb…", snippet(text, "kata", 4))
	assert.Equal(t, "aaaa…", snippet(text, "tidakada", 2))
	assert.Equal(t, "pendek", snippet("pendek", "", 10))

	// "İ" lowers to a longer byte sequence; the cut must still land on the match.
	assert.Equal(t, "…İ kata u…", snippet("İİİİİİ kata ujung", "KATA", 2))
}
