package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"ms-marketplace/internal/models"
	"time"

	"github.com/skip2/go-qrcode"
)

// ErrInvalidPass is returned for passes that fail to decrypt or parse.
var ErrInvalidPass = errors.New("invalid check-in pass")

// Pass is the content of a check-in QR code. It is bound to the owner at the
// time of issue so a pass stops working once the ticket changes hands.
type Pass struct {
	FestivalID string    `json:"festival_id"`
	TokenID    uint64    `json:"token_id"`
	Owner      string    `json:"owner"`
	IssuedAt   time.Time `json:"issued_at"`
}

func NewPass(ticket *models.Ticket, at time.Time) Pass {
	return Pass{FestivalID: ticket.FestivalID, TokenID: ticket.TokenID, Owner: ticket.Owner, IssuedAt: at}
}

type QRGenerator struct {
	aead cipher.AEAD
}

func NewQRGenerator(secret string) (*QRGenerator, error) {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	block, err := aes.NewCipher(hashed[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &QRGenerator{aead: aead}, nil
}

// Token encrypts the pass into the string carried by the QR code.
func (q *QRGenerator) Token(pass Pass) (string, error) {
	data, err := json.Marshal(pass)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, q.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := q.aead.Seal(nonce, nonce, data, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// GenerateEncryptedQR renders the pass as a PNG QR code.
func (q *QRGenerator) GenerateEncryptedQR(pass Pass) ([]byte, error) {
	token, err := q.Token(pass)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(token, qrcode.Medium, 256)
}

// Decode reverses Token.
func (q *QRGenerator) Decode(token string) (Pass, error) {
	var pass Pass
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return pass, fmt.Errorf("%w: %v", ErrInvalidPass, err)
	}
	ns := q.aead.NonceSize()
	if len(raw) < ns {
		return pass, fmt.Errorf("%w: too short", ErrInvalidPass)
	}
	data, err := q.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return pass, fmt.Errorf("%w: %v", ErrInvalidPass, err)
	}
	if err := json.Unmarshal(data, &pass); err != nil {
		return pass, fmt.Errorf("%w: %v", ErrInvalidPass, err)
	}
	return pass, nil
}
