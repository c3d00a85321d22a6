package utils

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secureshare/models"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"my report  final.pdf", "my_report_final.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\bob\notes.txt`, "notes.txt"},
		{".hidden.txt", "hidden.txt"},
		{"weird<>:|?*name.csv", "weirdname.csv"},
		{"отчёт.txt", "txt"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}

func TestSanitizeFilenameTruncatesKeepingExtension(t *testing.T) {
	long := strings.Repeat("a", 400) + ".txt"
	got := SanitizeFilename(long)
	assert.Len(t, got, maxOriginalNameLength)
	assert.True(t, strings.HasSuffix(got, ".txt"))
}

func TestFileExtension(t *testing.T) {
	assert.Equal(t, "pdf", FileExtension("a.PDF"))
	assert.Equal(t, "gz", FileExtension("a.tar.gz"))
	assert.Equal(t, "", FileExtension("noext"))
	assert.Equal(t, "", FileExtension("trailing."))
}

func TestUploadPolicy(t *testing.T) {
	p := NewUploadPolicy(10, []string{"TXT", ".pdf", " csv ", ""})

	assert.True(t, p.IsAllowedExtension("txt"))
	assert.True(t, p.IsAllowedExtension("PDF"))
	assert.True(t, p.IsAllowedExtension("csv"))
	assert.False(t, p.IsAllowedExtension("exe"))
	assert.False(t, p.IsAllowedExtension(""))
}

func TestGenerateStoredName(t *testing.T) {
	a := GenerateStoredName("txt")
	b := GenerateStoredName("txt")

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, ".txt"))
	assert.Len(t, a, 36+4)
	assert.Len(t, GenerateStoredName(""), 36)
}

func TestGenerateShareToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		token, err := GenerateShareToken()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		assert.Len(t, raw, ShareTokenBytes)

		_, dup := seen[token]
		assert.False(t, dup)
		seen[token] = struct{}{}
	}
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(4)

	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.True(t, h.Verify("s3cret", hash))
	assert.False(t, h.Verify("wrong", hash))
	assert.False(t, h.Verify("s3cret", "not-a-hash"))

	other, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other)

	_, err = h.Hash(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestTokenManagerRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	token, err := m.GenerateAccessToken("user-1", "admin")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "secureshare", claims.Issuer)
}

func TestTokenManagerRejects(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	other := NewTokenManager("other-secret", time.Hour)
	foreign, err := other.GenerateAccessToken("user-1", "")
	require.NoError(t, err)
	_, err = m.ValidateToken(foreign)
	assert.Error(t, err)

	expired := NewTokenManager("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.GenerateAccessToken("user-1", "")
	require.NoError(t, err)
	_, err = m.ValidateToken(old)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "user-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.ValidateToken(unsigned)
	assert.Error(t, err)

	_, err = m.GenerateAccessToken("", "")
	assert.Error(t, err)
}

type sampleRequest struct {
	Name  string `json:"name" validate:"required"`
	Limit *int64 `form:"download_limit" validate:"omitempty,gte=1"`
}

func TestFieldErrorsUseWireNames(t *testing.T) {
	zero := int64(0)
	fields := FieldErrors(sampleRequest{Limit: &zero})
	assert.Equal(t, "name is required", fields["name"])
	assert.Equal(t, "download_limit must be greater than or equal to 1", fields["download_limit"])

	fields = FieldErrors(sampleRequest{Name: "x", Limit: &zero})
	assert.Len(t, fields, 1)

	assert.Nil(t, FieldErrors(sampleRequest{Name: "x"}))
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "100 MiB", FormatFileSize(100*1024*1024))
	assert.Equal(t, "0 B", FormatFileSize(-5))
}

func TestObjectIDHelpers(t *testing.T) {
	id, err := StringToObjectID("507f1f77bcf86cd799439011")
	require.NoError(t, err)
	assert.Equal(t, "507f1f77bcf86cd799439011", id.Hex())

	_, err = StringToObjectID("nope")
	assert.Error(t, err)
}

func TestCodedErrorResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	CodedErrorResponse(c, http.StatusGone, "expired", "File has expired", nil)

	assert.Equal(t, http.StatusGone, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"expired"`)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestPrincipalContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := GetPrincipalFromContext(c)
	assert.False(t, ok)

	SetPrincipalInContext(c, models.NewPrincipal("u1", "admin"))
	p, ok := GetPrincipalFromContext(c)
	require.True(t, ok)
	assert.Equal(t, "u1", p.ID)
	assert.True(t, p.Admin)
	assert.Equal(t, "u1", c.GetString(ContextUserIDKey))
}
