// Package webpush decrypts Mastodon web push messages.
//
// Mastodon encrypts push payloads with the "aesgcm" content encoding
// (draft-ietf-webpush-encryption-04). A subscriber generates a P-256 key pair and an auth
// secret, registers the public half with the server, and decrypts each message with the
// private half and the Encryption and Crypto-Key headers that accompany it.
package webpush

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/hkdf"

	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
	pkgerrs "github.com/jamesprial/go-mastodon-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/types"
)

const (
	authSecretLength  = 16
	keyLength         = 16
	nonceLength       = 12
	tagLength         = 16
	paddingLength     = 2
	defaultRecordSize = 4096
)

// PrivateKeys are kept by the subscriber to decrypt messages.
type PrivateKeys struct {
	Key  *ecdh.PrivateKey
	Auth []byte
}

// PublicKeys are registered with the server when subscribing. Both are unpadded base64url.
type PublicKeys struct {
	P256DH string
	Auth   string
}

// GenerateKeys creates a key pair and auth secret for a push subscription. A nil rng means
// crypto/rand.
func GenerateKeys(rng io.Reader) (*PrivateKeys, *PublicKeys, error) {
	if rng == nil {
		rng = rand.Reader
	}
	key, err := ecdh.P256().GenerateKey(rng)
	if err != nil {
		return nil, nil, fmt.Errorf("generate push key: %w", err)
	}
	auth := make([]byte, authSecretLength)
	if _, err := io.ReadFull(rng, auth); err != nil {
		return nil, nil, fmt.Errorf("generate push auth secret: %w", err)
	}
	return &PrivateKeys{Key: key, Auth: auth}, &PublicKeys{
		P256DH: base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:   base64.RawURLEncoding.EncodeToString(auth),
	}, nil
}

// Headers are the encryption parameters sent with a push message.
type Headers struct {
	// Encryption carries salt=... and optionally rs=...
	Encryption string
	// CryptoKey carries dh=..., the sender's public key, next to other parameters.
	CryptoKey string
}

// Decrypt returns the plaintext of a push message.
func Decrypt(data []byte, keys *PrivateKeys, h Headers) ([]byte, error) {
	if keys == nil || keys.Key == nil {
		return nil, &pkgerrs.IllegalArgumentError{Field: "keys", Message: "private keys are required"}
	}

	enc := headerParams(h.Encryption)
	salt, err := decodeBase64(enc["salt"])
	if err != nil || len(salt) != 16 {
		return nil, &pkgerrs.ParseError{Operation: "webpush", Message: "Encryption header carries no valid salt", Err: err}
	}
	rs := defaultRecordSize
	if v, ok := enc["rs"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= paddingLength {
			return nil, &pkgerrs.ParseError{Operation: "webpush", Message: fmt.Sprintf("invalid record size %q", v), Err: err}
		}
		rs = n
	}
	dh, err := decodeBase64(headerParams(h.CryptoKey)["dh"])
	if err != nil || len(dh) == 0 {
		return nil, &pkgerrs.ParseError{Operation: "webpush", Message: "Crypto-Key header carries no dh key", Err: err}
	}

	sender, err := ecdh.P256().NewPublicKey(dh)
	if err != nil {
		return nil, &pkgerrs.ParseError{Operation: "webpush", Message: "invalid sender key", Err: err}
	}
	key, nonce, err := deriveKeys(keys.Key, sender, keys.Auth, salt, false)
	if err != nil {
		return nil, err
	}
	return decryptRecords(data, key, nonce, rs)
}

// DecryptNotification decrypts a push message and casts it to a PushNotification, whose
// notification_id can be fetched with Client.Notification.
func DecryptNotification(data []byte, keys *PrivateKeys, h Headers) (*entity.Entity, error) {
	plain, err := Decrypt(data, keys, h)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(plain))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &pkgerrs.ParseError{Operation: "webpush", Message: "payload is not JSON", Err: err}
	}
	e, ok := entity.Cast(types.PushNotificationType, v).(*entity.Entity)
	if !ok {
		return nil, &pkgerrs.ParseError{Operation: "webpush", Message: "payload is not an object"}
	}
	return e, nil
}

// deriveKeys computes the content encryption key and base nonce. local is our key pair and
// remote the other party's public key; sending swaps the key order of the context.
func deriveKeys(local *ecdh.PrivateKey, remote *ecdh.PublicKey, auth, salt []byte, sending bool) ([]byte, []byte, error) {
	secret, err := local.ECDH(remote)
	if err != nil {
		return nil, nil, &pkgerrs.ParseError{Operation: "webpush", Message: "key agreement failed", Err: err}
	}

	receiverPub, senderPub := local.PublicKey().Bytes(), remote.Bytes()
	if sending {
		receiverPub, senderPub = senderPub, receiverPub
	}

	ikm := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, auth, []byte("Content-Encoding: auth\x00")), ikm); err != nil {
		return nil, nil, err
	}

	context := []byte("P-256\x00")
	context = binary.BigEndian.AppendUint16(context, uint16(len(receiverPub)))
	context = append(context, receiverPub...)
	context = binary.BigEndian.AppendUint16(context, uint16(len(senderPub)))
	context = append(context, senderPub...)

	key := make([]byte, keyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, append([]byte("Content-Encoding: aesgcm\x00"), context...)), key); err != nil {
		return nil, nil, err
	}
	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, append([]byte("Content-Encoding: nonce\x00"), context...)), nonce); err != nil {
		return nil, nil, err
	}
	return key, nonce, nil
}

func recordNonce(base []byte, seq uint64) []byte {
	nonce := append([]byte(nil), base...)
	tail := binary.BigEndian.Uint64(nonce[nonceLength-8:])
	binary.BigEndian.PutUint64(nonce[nonceLength-8:], tail^seq)
	return nonce
}

func decryptRecords(data, key, nonce []byte, rs int) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	chunk := rs + tagLength
	var out []byte
	for seq, start := uint64(0), 0; start < len(data); seq, start = seq+1, start+chunk {
		end := min(start+chunk, len(data))
		plain, err := gcm.Open(nil, recordNonce(nonce, seq), data[start:end], nil)
		if err != nil {
			return nil, &pkgerrs.ParseError{Operation: "webpush", Message: fmt.Sprintf("record %d does not decrypt", seq), Err: err}
		}
		if len(plain) < paddingLength {
			return nil, &pkgerrs.ParseError{Operation: "webpush", Message: fmt.Sprintf("record %d is truncated", seq)}
		}
		pad := int(binary.BigEndian.Uint16(plain))
		if paddingLength+pad > len(plain) {
			return nil, &pkgerrs.ParseError{Operation: "webpush", Message: fmt.Sprintf("record %d has invalid padding", seq)}
		}
		for _, b := range plain[paddingLength : paddingLength+pad] {
			if b != 0 {
				return nil, &pkgerrs.ParseError{Operation: "webpush", Message: fmt.Sprintf("record %d has invalid padding", seq)}
			}
		}
		out = append(out, plain[paddingLength+pad:]...)
	}
	return out, nil
}

// headerParams splits "a=1;b=2" (or comma separated) parameters.
func headerParams(h string) map[string]string {
	params := map[string]string{}
	for _, part := range strings.FieldsFunc(h, func(r rune) bool { return r == ';' || r == ',' }) {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		params[strings.ToLower(strings.TrimSpace(k))] = strings.Trim(strings.TrimSpace(v), `"`)
	}
	return params
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
