package docs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Client talks to the document backend's REST API: documents are fetched
// with GET /documents/{id} and mutated with POST /documents/{id}:batchUpdate.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, token: token, http: httpClient}
}

type rangeSpec struct {
	StartIndex int64 `json:"startIndex"`
	EndIndex   int64 `json:"endIndex"`
}

type deleteContentRange struct {
	Range rangeSpec `json:"range"`
}

type location struct {
	Index int64 `json:"index"`
}

type insertText struct {
	Location location `json:"location"`
	Text     string   `json:"text"`
}

type updateRequest struct {
	DeleteContentRange *deleteContentRange `json:"deleteContentRange,omitempty"`
	InsertText         *insertText         `json:"insertText,omitempty"`
}

type batchUpdateBody struct {
	Requests []updateRequest `json:"requests"`
}

func (c *Client) Get(ctx context.Context, docID string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/documents/%s", c.baseURL, docID), nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("docs get %s: %w", docID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("get", docID, resp)
	}

	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("docs get %s: decode: %w", docID, err)
	}
	return &doc, nil
}

func (c *Client) DeleteRange(ctx context.Context, docID string, startIndex, endIndex int64) error {
	body := batchUpdateBody{Requests: []updateRequest{{
		DeleteContentRange: &deleteContentRange{
			Range: rangeSpec{StartIndex: startIndex, EndIndex: endIndex},
		},
	}}}
	return c.batchUpdate(ctx, "deleteRange", docID, body)
}

func (c *Client) InsertText(ctx context.Context, docID string, index int64, text string) error {
	body := batchUpdateBody{Requests: []updateRequest{{
		InsertText: &insertText{Location: location{Index: index}, Text: text},
	}}}
	return c.batchUpdate(ctx, "insertText", docID, body)
}

func (c *Client) batchUpdate(ctx context.Context, op, docID string, body batchUpdateBody) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/documents/%s:batchUpdate", c.baseURL, docID), bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("docs %s %s: %w", op, docID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(op, docID, resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func statusError(op, docID string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	return fmt.Errorf("docs %s %s: status %d: %s", op, docID, resp.StatusCode, bytes.TrimSpace(snippet))
}
