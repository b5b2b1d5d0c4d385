package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidSignature = errors.New("invalid or expired download token")

type objectClaims struct {
	Bucket string `json:"bkt"`
	Path   string `json:"path"`
	jwt.RegisteredClaims
}

// URLSigner builds download links served by the files endpoint. Private objects
// carry a short-lived HS256 token bound to bucket and path.
type URLSigner struct {
	key     []byte
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

func NewURLSigner(key []byte, baseURL string, ttl time.Duration) *URLSigner {
	return &URLSigner{key: key, baseURL: baseURL, ttl: ttl, now: time.Now}
}

func (s *URLSigner) objectURL(bucket, objectPath string) string {
	u, err := url.JoinPath(s.baseURL, bucket, objectPath)
	if err != nil {
		return s.baseURL + "/" + bucket + "/" + objectPath
	}
	return u
}

func (s *URLSigner) PublicURL(bucket, objectPath string) string {
	return s.objectURL(bucket, objectPath)
}

// ObjectPath reverses PublicURL. ok is false for links this signer did not build.
func (s *URLSigner) ObjectPath(bucket, rawURL string) (string, bool) {
	prefix := strings.TrimSuffix(s.objectURL(bucket, "x"), "x")
	objectPath, found := strings.CutPrefix(rawURL, prefix)
	if !found {
		return "", false
	}
	if _, err := objectKey(bucket, objectPath); err != nil {
		return "", false
	}
	return objectPath, true
}

// SignedURL returns a link valid for the signer's TTL.
func (s *URLSigner) SignedURL(bucket, objectPath string) (string, error) {
	now := s.now()
	claims := objectClaims{
		Bucket: bucket,
		Path:   objectPath,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign object url: %w", err)
	}
	return s.objectURL(bucket, objectPath) + "?token=" + url.QueryEscape(token), nil
}

func (s *URLSigner) Verify(token, bucket, objectPath string) error {
	claims := &objectClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if claims.Bucket != bucket || claims.Path != objectPath {
		return fmt.Errorf("%w: token issued for another object", ErrInvalidSignature)
	}
	return nil
}
