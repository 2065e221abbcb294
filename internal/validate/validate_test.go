package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	valid := []string{
		"a@b.com",
		"user.name+tag@example.co.uk",
		"x_1-2@sub.domain.io",
	}
	for _, s := range valid {
		assert.True(t, Email(s), "expected valid: %q", s)
	}

	invalid := []string{
		"",
		"plainaddress",
		"@no-local.com",
		"no-domain@",
		"no-tld@host",
		"two@@at.com",
		"<script>alert(1)</script>@x.com",
		"javascript:alert(1)@x.com",
		strings.Repeat("a", 315) + "@b.com",
	}
	for _, s := range invalid {
		assert.False(t, Email(s), "expected invalid: %q", s)
	}
}

func TestPassword(t *testing.T) {
	res := Password("Str0ngPass")
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)

	res = Password("weak")
	assert.False(t, res.Valid)
	// Short, no uppercase, no digit: every violated rule is reported.
	assert.Len(t, res.Errors, 3)

	res = Password("alllowercase1")
	assert.False(t, res.Valid)
	assert.Len(t, res.Errors, 1)
}

func TestUsername(t *testing.T) {
	assert.True(t, Username("alice_01").Valid)
	assert.True(t, Username("a.b-c").Valid)

	assert.False(t, Username("ab").Valid, "below minimum length")
	assert.False(t, Username(strings.Repeat("a", 31)).Valid, "above maximum length")
	assert.False(t, Username("has space").Valid)
	assert.False(t, Username("<script>bad</script>").Valid)
	assert.False(t, Username("javascript:x").Valid)

	res := Username("x")
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Errors)
}

func TestEthPrice(t *testing.T) {
	assert.True(t, EthPrice("0.05").Valid)
	assert.True(t, EthPrice("100").Valid)

	assert.False(t, EthPrice("").Valid)
	assert.False(t, EthPrice("abc").Valid)
	assert.False(t, EthPrice("0").Valid)
	assert.False(t, EthPrice("-1").Valid)
	assert.False(t, EthPrice("1000001").Valid)
	assert.False(t, EthPrice("0.0000000000000000001").Valid, "more than 18 decimal places")
}

func TestNFTFile(t *testing.T) {
	assert.True(t, NFTFile(1024, "image/png").Valid)
	assert.True(t, NFTFile(1024, "video/mp4").Valid)

	assert.False(t, NFTFile(0, "image/png").Valid, "empty file")
	assert.False(t, NFTFile(MaxFileSize+1, "image/png").Valid, "oversized file")
	assert.False(t, NFTFile(1024, "application/x-msdownload").Valid, "disallowed type")
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "hello", Sanitize("  hello  "))
	assert.Equal(t, "ab", Sanitize("a\x00b"))
	assert.Equal(t, "a\nb", Sanitize("a\nb"), "newlines survive")
}
