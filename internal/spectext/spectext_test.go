package spectext

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtract_PlainText(t *testing.T) {
	t.Parallel()

	text, err := New().Extract("spec.txt", []byte("the page must greet the user"))
	require.NoError(t, err)
	require.Equal(t, "the page must greet the user", text)
}

func TestExtract_UppercaseExtension(t *testing.T) {
	t.Parallel()

	text, err := New().Extract("SPEC.TXT", []byte("case insensitive"))
	require.NoError(t, err)
	require.Equal(t, "case insensitive", text)
}

func TestExtract_CorruptPDF(t *testing.T) {
	t.Parallel()

	_, err := New().Extract("spec.pdf", []byte("definitely not a pdf"))
	require.Error(t, err)
}

func TestExtract_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	_, err := New().Extract("spec.docx", []byte("binary"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported specification file")
}
