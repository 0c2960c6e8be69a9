package core

import (
	"fmt"
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const DefaultImagesURL = "https://api.openai.com/v1/images/generations"

type Config struct {
	Env      string `yaml:"env" env:"AIFI_ENV" env-default:"local"`
	Listen   string `yaml:"listen" env:"AIFI_LISTEN" env-default:"127.0.0.1:8080"`
	ApiToken string `yaml:"api_token" env:"AIFI_API_TOKEN" env-default:""`
	OpenAI   struct {
		ApiURL  string        `yaml:"api_url" env:"OPENAI_IMAGES_URL" env-default:"https://api.openai.com/v1/images/generations"`
		Timeout time.Duration `yaml:"timeout" env:"OPENAI_TIMEOUT" env-default:"240s"`
	} `yaml:"openai"`
	// Defaults seed the settings record the first time the service starts
	Defaults struct {
		ApiKey       string `yaml:"api_key" env:"OPENAI_API_KEY" env-default:""`
		Size         string `yaml:"size" env-default:"1536x1024"`
		Style        string `yaml:"style" env-default:"realistic"`
		AllowText    bool   `yaml:"allow_text" env-default:"false"`
		OutputFormat string `yaml:"output_format" env-default:"webp"`
		ImageQuality int    `yaml:"image_quality" env-default:"90"`
		Model        string `yaml:"model" env-default:"gpt-image-1"`
	} `yaml:"defaults"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Host     string `yaml:"host" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env-default:"27017"`
		User     string `yaml:"user" env-default:"admin"`
		Password string `yaml:"password" env:"AIFI_MONGO_PASSWORD" env-default:"pass"`
		Database string `yaml:"database" env-default:"aifi"`
	} `yaml:"mongo"`
	Media struct {
		Dir     string `yaml:"dir" env:"AIFI_MEDIA_DIR" env-default:"uploads"`
		BaseURL string `yaml:"base_url" env:"AIFI_BASE_URL" env-default:"http://127.0.0.1:8080"`
	} `yaml:"media"`
	Telegram struct {
		Enabled bool   `yaml:"enabled" env-default:"false"`
		ApiKey  string `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
		ChatId  int64  `yaml:"chat_id" env-default:"0"`
	} `yaml:"telegram"`
}

func Load(path string) (*Config, error) {
	conf := &Config{}
	if err := cleanenv.ReadConfig(path, conf); err != nil {
		desc, _ := cleanenv.GetDescription(conf, nil)
		return nil, fmt.Errorf("config: %s; %s", err, desc)
	}
	return conf, nil
}

func MustLoad(path string) *Config {
	conf, err := Load(path)
	if err != nil {
		log.Fatal(err)
	}
	return conf
}

func (c *Config) MongoURI() string {
	return fmt.Sprintf("mongodb://%s:%s@%s:%s",
		c.Mongo.User, c.Mongo.Password,
		c.Mongo.Host, c.Mongo.Port)
}
