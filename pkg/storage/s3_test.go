package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemplateKey(t *testing.T) {
	assert.Equal(t, "templates/abc/Ethics Deck.pptx", TemplateKey("abc", "Ethics Deck.pptx"))
	assert.Equal(t, "templates/abc/deck.pptx", TemplateKey("abc", `C:\Users\me\deck.pptx`))
	assert.Equal(t, "templates/abc/passwd", TemplateKey("abc", "../../etc/passwd"))
}

func TestContentTypeForFilename(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentTypeForFilename("handout.PDF"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.presentationml.presentation", ContentTypeForFilename("deck.pptx"))
	assert.Equal(t, "application/vnd.ms-powerpoint", ContentTypeForFilename("old.ppt"))
	assert.Equal(t, "application/octet-stream", ContentTypeForFilename("notes.txt"))
}
