package wattattack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client - клиент для работы с API WattAttack
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт новый клиент WattAttack
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Session - авторизованная сессия аккаунта
type Session struct {
	Token string `json:"token"`
}

// Activity - сводка активности из ленты аккаунта
type Activity struct {
	ID           string    `json:"id"`
	StartTime    time.Time `json:"startTime"`
	AthleteName  string    `json:"athleteName"`
	DistanceM    float64   `json:"distance"`
	ElapsedSec   int64     `json:"elapsedTime"`
	ElevationM   float64   `json:"elevationGain"`
	AvgPower     float64   `json:"averagePower"`
	AvgCadence   float64   `json:"averageCadence"`
	AvgHeartrate float64   `json:"averageHeartrate"`
	FitFileID    string    `json:"fitFileId"`
}

// Profile - профиль райдера внутри аккаунта
type Profile struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	WeightKG  float64 `json:"weight"`
	HeightCM  float64 `json:"height"`
	FTP       int     `json:"ftp"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type activitiesResponse struct {
	Activities []Activity `json:"activities"`
	HasMore    bool       `json:"hasMore"`
}

// Login авторизует аккаунт и возвращает сессию
func (c *Client) Login(login, password string) (*Session, error) {
	body, err := json.Marshal(loginRequest{Login: login, Password: password})
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Post(c.baseURL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("логин WattAttack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("логин WattAttack: статус %d", resp.StatusCode)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("логин WattAttack: %w", err)
	}
	if session.Token == "" {
		return nil, fmt.Errorf("логин WattAttack: пустой токен")
	}
	return &session, nil
}

func (c *Client) get(session *Session, path string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+session.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("статус %d", resp.StatusCode)
	}
	return resp, nil
}

// Activities возвращает ленту активностей аккаунта, проходя по страницам
func (c *Client) Activities(session *Session) ([]Activity, error) {
	var all []Activity
	for page := 1; ; page++ {
		resp, err := c.get(session, fmt.Sprintf("/api/activities?page=%d", page))
		if err != nil {
			return nil, fmt.Errorf("лента активностей: %w", err)
		}

		var parsed activitiesResponse
		err = json.NewDecoder(resp.Body).Decode(&parsed)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("лента активностей: %w", err)
		}

		all = append(all, parsed.Activities...)
		if !parsed.HasMore || len(parsed.Activities) == 0 {
			break
		}
	}
	return all, nil
}

// DownloadFit скачивает FIT-файл активности
func (c *Client) DownloadFit(session *Session, fitFileID string) ([]byte, error) {
	resp, err := c.get(session, "/api/files/fit/"+fitFileID)
	if err != nil {
		return nil, fmt.Errorf("скачивание FIT %s: %w", fitFileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("скачивание FIT %s: %w", fitFileID, err)
	}
	return data, nil
}

// GetProfile возвращает текущий профиль аккаунта
func (c *Client) GetProfile(session *Session) (*Profile, error) {
	resp, err := c.get(session, "/api/profile")
	if err != nil {
		return nil, fmt.Errorf("профиль: %w", err)
	}
	defer resp.Body.Close()

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("профиль: %w", err)
	}
	return &profile, nil
}

// UpdateProfile записывает поля профиля в аккаунт
func (c *Client) UpdateProfile(session *Session, profile Profile) error {
	body, err := json.Marshal(profile)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPut, c.baseURL+"/api/profile", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+session.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("обновление профиля: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("обновление профиля: статус %d", resp.StatusCode)
	}
	return nil
}
