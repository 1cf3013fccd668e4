package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит конфигурацию приложения
type Config struct {
	// Telegram
	ClientBotToken string
	AdminBotToken  string
	AdminChatID    int64

	// PostgreSQL
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Часовой пояс для сопоставления активностей с расписанием
	Timezone string

	// WattAttack
	WattAttackURL string
	AccountsPath  string // JSON со списком аккаунтов и их станков

	// Внешние сервисы доставки
	StravaBrokerURL string
	IntervalsURL    string

	// Архив FIT-файлов
	FitDir string

	// Google Sheets (зеркало расписания, опционально)
	GoogleCredentialsPath string
	ScheduleSpreadsheetID string

	// Тайминги
	HTTPTimeout    time.Duration // таймаут внешних HTTP-вызовов
	FitWait        time.Duration // сколько ждать FIT-файл до обработки без него
	MatchGrace     time.Duration // допуск окна слота при сопоставлении
	AssignLead     time.Duration // за сколько до старта применять профиль
	AssignWindow   time.Duration // ширина окна автоназначения
	ReminderBefore time.Duration // за сколько напоминать о брони

	// Автоназначение только наблюдает, без записи профиля
	AssignObserve bool
}

// Load загружает конфигурацию из переменных окружения или .env файла
func Load() (*Config, error) {
	env, err := loadEnvFile(".env")
	if err != nil {
		env = make(map[string]string)
	}

	getEnv := func(key, defaultValue string) string {
		if value := os.Getenv(key); value != "" {
			return value
		}
		if value, ok := env[key]; ok && value != "" {
			return value
		}
		return defaultValue
	}

	getSeconds := func(key string, defaultValue time.Duration) time.Duration {
		raw := getEnv(key, "")
		if raw == "" {
			return defaultValue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return defaultValue
		}
		return time.Duration(n) * time.Second
	}

	adminChatID, _ := strconv.ParseInt(getEnv("ADMIN_CHAT_ID", "0"), 10, 64)

	cfg := &Config{
		ClientBotToken: getEnv("CLIENT_BOT_TOKEN", ""),
		AdminBotToken:  getEnv("ADMIN_BOT_TOKEN", ""),
		AdminChatID:    adminChatID,

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "krutilka"),

		Timezone: getEnv("TIMEZONE", "Europe/Moscow"),

		WattAttackURL: getEnv("WATTATTACK_URL", "https://api.wattattack.com"),
		AccountsPath:  getEnv("ACCOUNTS_PATH", "accounts.json"),

		StravaBrokerURL: getEnv("STRAVA_BROKER_URL", "http://localhost:8085"),
		IntervalsURL:    getEnv("INTERVALS_URL", "https://intervals.icu"),

		FitDir: getEnv("FIT_DIR", "fit-archive"),

		GoogleCredentialsPath: getEnv("GOOGLE_CREDENTIALS_PATH", "google-credentials.json"),
		ScheduleSpreadsheetID: getEnv("SCHEDULE_SPREADSHEET_ID", ""),

		HTTPTimeout:    getSeconds("HTTP_TIMEOUT_SEC", 30*time.Second),
		FitWait:        getSeconds("FIT_WAIT_SEC", 600*time.Second),
		MatchGrace:     getSeconds("MATCH_GRACE_SEC", 30*time.Minute),
		AssignLead:     getSeconds("ASSIGN_LEAD_SEC", 20*time.Minute),
		AssignWindow:   getSeconds("ASSIGN_WINDOW_SEC", 15*time.Minute),
		ReminderBefore: getSeconds("REMINDER_BEFORE_SEC", 4*time.Hour),

		AssignObserve: getEnv("ASSIGN_OBSERVE", "") == "1",
	}

	if cfg.ClientBotToken == "" {
		return nil, fmt.Errorf("CLIENT_BOT_TOKEN не задан")
	}
	if cfg.AdminBotToken == "" {
		return nil, fmt.Errorf("ADMIN_BOT_TOKEN не задан")
	}
	if cfg.AdminChatID == 0 {
		return nil, fmt.Errorf("ADMIN_CHAT_ID не задан")
	}

	return cfg, nil
}

// Location возвращает часовой пояс площадки
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// DSN возвращает строку подключения к базе данных
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

// loadEnvFile читает .env файл
func loadEnvFile(filename string) (map[string]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	env := make(map[string]string)
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		env[key] = value
	}

	return env, scanner.Err()
}
