package auth

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const minKeyTTL = 5 * time.Second

// keyCache holds the RSA key assertions are verified with, fetched from a
// JWKS or PEM endpoint and refreshed on its Cache-Control max-age.
type keyCache struct {
	url    string
	kid    string
	client HTTPDoer

	mu      sync.RWMutex
	pub     *rsa.PublicKey
	etag    string
	ttl     time.Duration
	fetched time.Time
}

func newKeyCache(url, kid string, client HTTPDoer) *keyCache {
	return &keyCache{url: url, kid: kid, client: client, ttl: time.Hour}
}

// key is nil-safe so a Middleware without assertion support needs no branch.
func (k *keyCache) key() *rsa.PublicKey {
	if k == nil {
		return nil
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.pub
}

func (k *keyCache) maxAge() time.Duration {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return max(k.ttl, minKeyTTL)
}

// run refreshes the key until ctx is done. Failed refreshes keep the
// previous key.
func (k *keyCache) run(ctx context.Context) {
	for {
		t := time.NewTimer(k.maxAge())
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		_ = k.refresh(ctx)
	}
}

func (k *keyCache) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "*/*")
	k.mu.RLock()
	if k.etag != "" {
		req.Header.Set("If-None-Match", k.etag)
	}
	k.mu.RUnlock()

	res, err := k.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotModified && k.key() != nil {
		k.mu.Lock()
		k.ttl = cacheMaxAge(res.Header, k.ttl)
		k.fetched = time.Now()
		k.mu.Unlock()
		return nil
	}
	if res.StatusCode/100 != 2 {
		return fmt.Errorf("key fetch %s: %s", k.url, res.Status)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return err
	}
	var pub *rsa.PublicKey
	if isJWKS(res.Header.Get("Content-Type"), k.url) {
		pub, err = parseJWKS(body, k.kid)
	} else {
		pub, err = parsePEM(body)
	}
	if err != nil {
		return err
	}

	k.mu.Lock()
	k.pub = pub
	k.etag = res.Header.Get("ETag")
	k.ttl = cacheMaxAge(res.Header, k.ttl)
	k.fetched = time.Now()
	k.mu.Unlock()
	return nil
}

func isJWKS(contentType, url string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/json") ||
		strings.HasSuffix(strings.ToLower(url), ".json")
}

// cacheMaxAge returns the max-age directive when it is at least minKeyTTL,
// cur otherwise.
func cacheMaxAge(h http.Header, cur time.Duration) time.Duration {
	for _, d := range strings.Split(h.Get("Cache-Control"), ",") {
		v, ok := strings.CutPrefix(strings.ToLower(strings.TrimSpace(d)), "max-age=")
		if !ok {
			continue
		}
		if s, err := strconv.Atoi(v); err == nil && time.Duration(s)*time.Second >= minKeyTTL {
			return time.Duration(s) * time.Second
		}
	}
	return cur
}

type jwk struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// parseJWKS picks the key with kid, or the first RSA signing key when kid is
// empty.
func parseJWKS(b []byte, kid string) (*rsa.PublicKey, error) {
	var set struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.Unmarshal(b, &set); err != nil {
		return nil, fmt.Errorf("jwks: %w", err)
	}
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		if kid != "" && k.Kid != kid {
			continue
		}
		if kid == "" && ((k.Use != "" && k.Use != "sig") || (k.Alg != "" && !strings.EqualFold(k.Alg, "RS256"))) {
			continue
		}
		return k.publicKey()
	}
	return nil, errors.New("jwks: no suitable RSA key")
}

func (k jwk) publicKey() (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("jwks n: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("jwks e: %w", err)
	}
	exp := int(new(big.Int).SetBytes(e).Int64())
	if exp == 0 {
		exp = 65537
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: exp}, nil
}

func parsePEM(b []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, errors.New("no PEM block in response")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("PEM is not an RSA public key")
	}
	return pub, nil
}
