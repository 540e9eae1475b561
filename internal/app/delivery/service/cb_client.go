package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"parceldelivery/internal/app/delivery/entity"
)

// CBClient - HTTP клиент ежедневного JSON ЦБ с таблицей курсов валют
// Отвечает только за запрос и разбор ответа, без кэширования и ретраев
type CBClient struct {
	feedURL    string
	httpClient *http.Client
}

// NewCBClient создает новый клиент источника курсов
func NewCBClient(feedURL string, timeoutSec int) *CBClient {
	return &CBClient{
		feedURL: feedURL,
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSec) * time.Second,
		},
	}
}

// FetchDaily получает полную таблицу курсов за день
// Таймаут входит в настройки клиента; частичных результатов не бывает
func (c *CBClient) FetchDaily(ctx context.Context) (*entity.CBResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rate feed returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var feed entity.CBResponse
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rate feed response: %w", err)
	}

	// Пустая таблица означает несовпадение схемы, а не "нет курсов"
	if len(feed.Valute) == 0 {
		return nil, fmt.Errorf("rate feed response contains no rates")
	}

	return &feed, nil
}
