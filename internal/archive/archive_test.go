package archive

import (
	"archive/tar"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInputs(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	a := filepath.Join(dir, "abstract_emb.json")
	b := filepath.Join(dir, "title_emb.json")
	require.NoError(t, os.WriteFile(a, []byte(`[[1,0],[0,1]]`), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(`[[0.5,0.5],[1,1]]`), 0o644))
	return []string{a, b}
}

func TestCreateExtract_RoundTrip(t *testing.T) {
	for _, name := range []string{"bundle.zip", "bundle.tar", "bundle.tar.gz", "bundle.tgz", "bundle.tar.zst"} {
		t.Run(name, func(t *testing.T) {
			inputs := writeInputs(t)
			bundle := filepath.Join(t.TempDir(), name)
			require.NoError(t, Create(bundle, inputs...))

			dest := filepath.Join(t.TempDir(), "out")
			files, err := Extract(bundle, dest)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{
				filepath.Join(dest, "abstract_emb.json"),
				filepath.Join(dest, "title_emb.json"),
			}, files)

			got, err := os.ReadFile(filepath.Join(dest, "abstract_emb.json"))
			require.NoError(t, err)
			assert.Equal(t, `[[1,0],[0,1]]`, string(got))
		})
	}
}

func TestExtract_Unsupported(t *testing.T) {
	_, err := Extract("embedded_dataframes.7z", t.TempDir())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.ErrorIs(t, Create(filepath.Join(t.TempDir(), "x.rar")), ErrUnsupportedFormat)
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := Extract(filepath.Join(t.TempDir(), "missing.tar.gz"), t.TempDir())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtract_RejectsPathTraversal(t *testing.T) {
	bundle := filepath.Join(t.TempDir(), "evil.tar")
	f, err := os.Create(bundle)
	require.NoError(t, err)
	tw := tar.NewWriter(f)
	body := []byte("x")
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "../escape.json", Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}))
	_, err = tw.Write(body)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, f.Close())

	_, err = Extract(bundle, filepath.Join(t.TempDir(), "out"))
	assert.ErrorIs(t, err, ErrUnsafePath)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatTarZstd, DetectFormat("Embedded.TAR.ZST"))
	assert.Equal(t, FormatTarGzip, DetectFormat("x.tgz"))
	assert.Equal(t, FormatZip, DetectFormat("x.zip"))
	assert.Equal(t, FormatTar, DetectFormat("x.tar"))
	assert.Equal(t, FormatUnknown, DetectFormat("x.7z"))
}
