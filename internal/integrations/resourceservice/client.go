package resourceservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Client клиент для работы с реестром ресурсов
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        Logger
}

// NewClient создает новый экземпляр клиента реестра ресурсов
func NewClient(baseURL string, timeout time.Duration, log Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// GetResource получает ресурс с его политикой бронирования и статусом блокировки
func (c *Client) GetResource(ctx context.Context, resourceID string) (*Resource, error) {
	url := fmt.Sprintf("%s/internal/resources/%s", c.baseURL, resourceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Сетевые ошибки и таймауты - недоступность сервиса, retryable
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	// Обработка статус-кодов
	switch resp.StatusCode {
	case http.StatusOK:
		// Продолжаем обработку
	case http.StatusNotFound:
		return nil, ErrResourceNotFound
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return nil, fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(body))
	}

	var resource Resource
	if err := json.NewDecoder(resp.Body).Decode(&resource); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}

	return &resource, nil
}

// DayScheduleFor возвращает шаблон доступности ресурса на день недели
func (r *Resource) DayScheduleFor(weekday time.Weekday) DaySchedule {
	switch weekday {
	case time.Monday:
		return r.OperatingHours.Monday
	case time.Tuesday:
		return r.OperatingHours.Tuesday
	case time.Wednesday:
		return r.OperatingHours.Wednesday
	case time.Thursday:
		return r.OperatingHours.Thursday
	case time.Friday:
		return r.OperatingHours.Friday
	case time.Saturday:
		return r.OperatingHours.Saturday
	case time.Sunday:
		return r.OperatingHours.Sunday
	default:
		return DaySchedule{IsOpen: false}
	}
}
