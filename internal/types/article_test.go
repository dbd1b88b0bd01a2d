package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArticle_AttributeOnNilMap(t *testing.T) {
	a := &Article{Title: "No attributes"}

	v, ok := a.Attribute("download_articles_local_copy")
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestArticle_SetAttributeAllocates(t *testing.T) {
	a := &Article{}
	a.SetAttribute("k", "v")

	v, ok := a.Attribute("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestArticle_SetAttributeOverwrites(t *testing.T) {
	a := &Article{Attributes: map[string]string{"k": "old"}}
	a.SetAttribute("k", "new")

	assert.Equal(t, "new", a.Attributes["k"])
	assert.Len(t, a.Attributes, 1)
}
