package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
)

// SessionStore persists the identity provider's OAuth2 token as JSON under [KeySessionToken].
type SessionStore struct {
	meta *MetadataRepository
}

// NewSessionStore creates a [SessionStore] backed by meta.
func NewSessionStore(meta *MetadataRepository) *SessionStore {
	return &SessionStore{meta: meta}
}

// LoadToken returns the stored token, or nil when no session has been saved.
//
// The id_token extra survives the round trip under the "id_token" field.
func (s *SessionStore) LoadToken(ctx context.Context) (*oauth2.Token, error) {
	data, err := s.meta.Get(ctx, KeySessionToken)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var stored storedToken
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode session token: %w", err)
	}

	token := &stored.Token
	if stored.IDToken != "" {
		token = token.WithExtra(map[string]any{"id_token": stored.IDToken})
	}
	return token, nil
}

// SaveToken stores token, replacing any previous session.
func (s *SessionStore) SaveToken(ctx context.Context, token *oauth2.Token) error {
	if token == nil {
		return s.ClearToken(ctx)
	}

	stored := storedToken{Token: *token}
	if idToken, ok := token.Extra("id_token").(string); ok {
		stored.IDToken = idToken
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode session token: %w", err)
	}
	return s.meta.Set(ctx, KeySessionToken, data)
}

// ClearToken removes the stored session.
func (s *SessionStore) ClearToken(ctx context.Context) error {
	return s.meta.Delete(ctx, KeySessionToken)
}

type storedToken struct {
	oauth2.Token
	IDToken string `json:"id_token,omitempty"`
}
