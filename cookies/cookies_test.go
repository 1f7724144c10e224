package cookies

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cookies.json")
	c := NewLoadCookie(path)

	_, err := c.LoadCookies()
	assert.Error(t, err)

	require.NoError(t, c.SaveCookies([]byte(`[{"name":"sessionid"}]`)))
	data, err := c.LoadCookies()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"sessionid"}]`, string(data))

	require.NoError(t, c.DeleteCookies())
	require.NoError(t, c.DeleteCookies())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestGetCookiesFilePath(t *testing.T) {
	t.Setenv("COOKIES_PATH", "")
	assert.Equal(t, DefaultFileName, GetCookiesFilePath())

	t.Setenv("COOKIES_PATH", "/data/ck.json")
	assert.Equal(t, "/data/ck.json", GetCookiesFilePath())
}

func TestGetInstanceCookiesFilePath(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "cookies.json")
	require.NoError(t, os.WriteFile(base, []byte("[]"), 0o600))

	path := GetInstanceCookiesFilePath(base, "2")
	assert.Equal(t, filepath.Join(dir, "cookies_2.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	// 已存在的副本不会被覆盖
	require.NoError(t, os.WriteFile(base, []byte(`[{"name":"new"}]`), 0o600))
	data, err = os.ReadFile(GetInstanceCookiesFilePath(base, "2"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	t.Setenv("COOKIES_PATH", base)
	assert.Equal(t, filepath.Join(dir, "cookies_3.json"), GetInstanceCookiesFilePath("", "3"))
}
