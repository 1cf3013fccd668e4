package intervals

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"
)

// Client - клиент для загрузки активностей в Intervals.icu.
// Авторизация basic auth парой API_KEY:ключ клиента.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт новый клиент Intervals.icu
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Upload отправляет FIT-файл в Intervals.icu по ключу клиента
func (c *Client) Upload(apiKey, name string, fit []byte) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("name", name); err != nil {
		return err
	}
	part, err := writer.CreateFormFile("file", "activity.fit")
	if err != nil {
		return err
	}
	if _, err := part.Write(fit); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/athlete/0/activities", &buf)
	if err != nil {
		return err
	}
	req.SetBasicAuth("API_KEY", apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("загрузка в Intervals: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("загрузка в Intervals: статус %d", resp.StatusCode)
	}
	return nil
}
