package browser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chromedp/cdproto/network"
	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCookies(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadCookies(t *testing.T) {
	path := writeCookies(t, `[
		{"name": "cookie_consent", "value": "all", "domain": ".cvbankas.lt", "path": "/", "expires": 1893456000.5, "httpOnly": true, "secure": true, "sameSite": "Lax"},
		{"name": "lang", "value": "lt", "domain": "www.cvbankas.lt"}
	]`)

	cookies, err := LoadCookies(path)
	require.NoError(t, err)
	require.Len(t, cookies, 2)

	pw := cookies[0].ToPlaywright()
	assert.Equal(t, "cookie_consent", pw.Name)
	assert.Equal(t, ".cvbankas.lt", *pw.Domain)
	assert.Equal(t, 1893456000.5, *pw.Expires)
	assert.True(t, *pw.HttpOnly)
	assert.Equal(t, playwright.SameSiteAttributeLax, pw.SameSite)

	plain := cookies[1].ToPlaywright()
	assert.Equal(t, "/", *plain.Path)
	assert.Nil(t, plain.Expires)
	assert.Nil(t, plain.SameSite)

	param := cookies[0].ToCDP()
	assert.Equal(t, "all", param.Value)
	assert.Equal(t, network.CookieSameSiteLax, param.SameSite)
	require.NotNil(t, param.Expires)
	assert.Equal(t, int64(1893456000), param.Expires.Time().Unix())

	assert.Nil(t, cookies[1].ToCDP().Expires)
}

func TestLoadCookies_Errors(t *testing.T) {
	_, err := LoadCookies(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadCookies(writeCookies(t, `{not json`))
	assert.Error(t, err)

	_, err = LoadCookies(writeCookies(t, `[{"name": "x", "value": "y"}]`))
	assert.ErrorContains(t, err, "domain")
}
