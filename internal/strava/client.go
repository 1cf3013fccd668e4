package strava

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"
)

// Client - клиент сервиса-брокера Strava. Брокер хранит OAuth-связки
// клиентов, ядру от него нужно только «подключён?» и «загрузи файл».
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт новый клиент брокера
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type statusResponse struct {
	Connected bool `json:"connected"`
}

// IsConnected проверяет, активна ли связка клиента со Strava
func (c *Client) IsConnected(clientID int) (bool, error) {
	resp, err := c.httpClient.Get(fmt.Sprintf("%s/api/status/%d", c.baseURL, clientID))
	if err != nil {
		return false, fmt.Errorf("статус Strava: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("статус Strava: статус %d", resp.StatusCode)
	}

	var parsed statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, fmt.Errorf("статус Strava: %w", err)
	}
	return parsed.Connected, nil
}

// Upload отправляет FIT-файл в Strava от имени клиента
func (c *Client) Upload(clientID int, name, description string, fit []byte) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("name", name); err != nil {
		return err
	}
	if err := writer.WriteField("description", description); err != nil {
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

	url := fmt.Sprintf("%s/api/upload/%d", c.baseURL, clientID)
	resp, err := c.httpClient.Post(url, writer.FormDataContentType(), &buf)
	if err != nil {
		return fmt.Errorf("загрузка в Strava: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("загрузка в Strava: статус %d", resp.StatusCode)
	}
	return nil
}
