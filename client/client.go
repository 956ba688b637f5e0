package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/chatrelay/models"
	"github.com/a-h/jsonapi"
)

func New(baseURL, apiKey string) Client {
	return Client{
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type Client struct {
	baseURL string
	apiKey  string
}

// ChatPost sends the whole conversation and returns the reply.
func (c Client) ChatPost(ctx context.Context, messages []models.ChatMessage) (reply string, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("api", "chat").String()
	if err != nil {
		return "", err
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	resp, err := jsonapi.Post[models.ChatPostRequest, models.ChatPostResponse](ctx, url, messages, jsonapi.WithRequestHeader("Authorization", c.apiKey))
	if err != nil {
		return "", err
	}
	return resp.Reply, nil
}

func (c Client) PingGet(ctx context.Context) (resp models.PingGetResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("api", "ping").String()
	if err != nil {
		return resp, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return resp, fmt.Errorf("failed to create request: %w", err)
	}
	res, err := jsonapi.Raw(httpReq)
	if err != nil {
		return resp, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(res.Body)
		return resp, jsonapi.InvalidStatusError{
			Status: res.StatusCode,
			Body:   string(body),
		}
	}
	if err = json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return resp, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp, nil
}
