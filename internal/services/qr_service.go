package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"time"

	"github.com/classbank/backend/internal/bank"
	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"
)

const receiveCodeTTL = 5 * time.Minute

// QRService issues short-lived receive codes: a student shows the QR, a
// classmate scans it and the code resolves to the transfer target.
type QRService struct {
	store bank.Store
	redis *redis.Client
}

func NewQRService(store bank.Store, redisClient *redis.Client) *QRService {
	return &QRService{
		store: store,
		redis: redisClient,
	}
}

// GenerateReceiveCode builds a QR code identifying accountID as a transfer
// target. It returns the opaque code and the QR image as base64 PNG.
func (s *QRService) GenerateReceiveCode(ctx context.Context, accountID int64) (string, string, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return "", "", err
	}

	payload := map[string]any{
		"accountId": account.ID,
		"username":  account.Username,
		"issuedAt":  time.Now().Unix(),
		"nonce":     generateNonce(),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}

	code := base64.URLEncoding.EncodeToString(jsonData)

	key := fmt.Sprintf("receive_qr:%s", code)
	if err := s.redis.Set(ctx, key, jsonData, receiveCodeTTL).Err(); err != nil {
		return "", "", err
	}

	qr, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", "", err
	}

	return code, base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ResolveReceiveCode maps a scanned code back to the issuing account. Codes
// are single-use and expire after five minutes.
func (s *QRService) ResolveReceiveCode(ctx context.Context, code string) (map[string]any, error) {
	key := fmt.Sprintf("receive_qr:%s", code)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("invalid or expired receive code")
	}
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	s.redis.Del(ctx, key)

	return result, nil
}

func generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
