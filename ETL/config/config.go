package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/LilVoxy/sales_warehouse/ETL/load"
	"github.com/LilVoxy/sales_warehouse/ETL/transform"
	"github.com/LilVoxy/sales_warehouse/ETL/utils"
)

// EnvPrefix - префикс переменных окружения
const EnvPrefix = "SALESETL"

// Поддерживаемые драйверы хранилища
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverMemory   = "memory"
)

// Типы источника данных
const (
	SourceCSV = "csv"
	SourceSQL = "sql"
)

// ErrUnknownDriver возвращается для неподдерживаемого драйвера БД
var ErrUnknownDriver = errors.New("неизвестный драйвер базы данных")

// ETLConfig содержит конфигурацию для ETL-процесса
type ETLConfig struct {
	// Источник исходных наборов
	Source SourceConfig `mapstructure:"source"`

	// Хранилище (целевая БД)
	Warehouse DatabaseConfig `mapstructure:"warehouse"`

	// Параметры запуска
	ETL RunConfig `mapstructure:"etl"`

	Normalize transform.NormalizerConfig `mapstructure:"normalize"`
	Load      load.Options               `mapstructure:"load"`
	Log       utils.LogConfig            `mapstructure:"log"`
}

// SourceConfig описывает, откуда читаются products, clients и sales
type SourceConfig struct {
	Type string `mapstructure:"type"` // csv, sql

	// Для csv
	Dir          string `mapstructure:"dir"`
	ProductsFile string `mapstructure:"products_file"`
	ClientsFile  string `mapstructure:"clients_file"`
	SalesFile    string `mapstructure:"sales_file"`

	// Для sql
	Database      DatabaseConfig `mapstructure:"database"`
	ProductsTable string         `mapstructure:"products_table"`
	ClientsTable  string         `mapstructure:"clients_table"`
	SalesTable    string         `mapstructure:"sales_table"`
}

// RunConfig содержит параметры запуска
type RunConfig struct {
	// Интервал запуска ETL в режиме планировщика
	RunInterval time.Duration `mapstructure:"run_interval"`

	// Ограничение времени одного запуска, 0 - без ограничения
	Timeout time.Duration `mapstructure:"timeout"`

	// Журнал запусков etl_run_log
	RunLog bool `mapstructure:"run_log"`

	// Шаблон пути архива отброшенных строк, %s заменяется run_id. Пусто - не писать
	RejectsPath string `mapstructure:"rejects_path"`

	// Адрес HTTP-сервера статуса в режиме планировщика. Пусто - не запускать
	StatusAddr string `mapstructure:"status_addr"`
}

// DatabaseConfig содержит настройки подключения к базе данных
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // mysql, postgres, pgx, memory
	URL      string `mapstructure:"url"`    // если задан, остальные поля подключения игнорируются
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// Значения конфигурации по умолчанию
var (
	DefaultWarehouseConfig = DatabaseConfig{
		Driver:          DriverMySQL,
		Host:            "localhost",
		Port:            3306,
		User:            "root",
		DBName:          "sales_warehouse",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}

	DefaultSourceConfig = SourceConfig{
		Type:          SourceCSV,
		Dir:           "data",
		ProductsFile:  "products.csv",
		ClientsFile:   "clients.csv",
		SalesFile:     "sales.csv",
		ProductsTable: "staging_products",
		ClientsTable:  "staging_clients",
		SalesTable:    "staging_sales",
	}

	DefaultETLConfig = ETLConfig{
		Source:    DefaultSourceConfig,
		Warehouse: DefaultWarehouseConfig,
		ETL: RunConfig{
			RunInterval: 1 * time.Hour,
			RunLog:      true,
		},
		Normalize: transform.DefaultNormalizerConfig,
		Load:      load.DefaultOptions(),
		Log: utils.LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
)

// Load читает конфигурацию: значения по умолчанию, затем файл (если есть),
// затем переменные окружения SALESETL_*. Файл .env подхватывается перед чтением окружения
func Load(configPath string) (*ETLConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("ошибка при чтении .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("ошибка при чтении файла конфигурации: %w", err)
		}
	} else {
		v.SetConfigName("salesetl")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("ошибка при чтении файла конфигурации: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg ETLConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка при разборе конфигурации: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("некорректная конфигурация: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultETLConfig

	v.SetDefault("source.type", d.Source.Type)
	v.SetDefault("source.dir", d.Source.Dir)
	v.SetDefault("source.products_file", d.Source.ProductsFile)
	v.SetDefault("source.clients_file", d.Source.ClientsFile)
	v.SetDefault("source.sales_file", d.Source.SalesFile)
	v.SetDefault("source.products_table", d.Source.ProductsTable)
	v.SetDefault("source.clients_table", d.Source.ClientsTable)
	v.SetDefault("source.sales_table", d.Source.SalesTable)
	setDatabaseDefaults(v, "source.database", DefaultWarehouseConfig)

	setDatabaseDefaults(v, "warehouse", d.Warehouse)

	v.SetDefault("etl.run_interval", d.ETL.RunInterval)
	v.SetDefault("etl.timeout", d.ETL.Timeout)
	v.SetDefault("etl.run_log", d.ETL.RunLog)
	v.SetDefault("etl.rejects_path", d.ETL.RejectsPath)
	v.SetDefault("etl.status_addr", d.ETL.StatusAddr)

	v.SetDefault("normalize.default_email", d.Normalize.DefaultEmail)
	v.SetDefault("normalize.default_country", d.Normalize.DefaultCountry)
	v.SetDefault("normalize.default_region", d.Normalize.DefaultRegion)

	v.SetDefault("load.skip_existing_facts", d.Load.SkipExistingFacts)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("log.file_path", d.Log.FilePath)
}

func setDatabaseDefaults(v *viper.Viper, prefix string, d DatabaseConfig) {
	v.SetDefault(prefix+".driver", d.Driver)
	v.SetDefault(prefix+".url", d.URL)
	v.SetDefault(prefix+".host", d.Host)
	v.SetDefault(prefix+".port", d.Port)
	v.SetDefault(prefix+".user", d.User)
	v.SetDefault(prefix+".password", d.Password)
	v.SetDefault(prefix+".dbname", d.DBName)
	v.SetDefault(prefix+".sslmode", d.SSLMode)
	v.SetDefault(prefix+".max_open_conns", d.MaxOpenConns)
	v.SetDefault(prefix+".max_idle_conns", d.MaxIdleConns)
	v.SetDefault(prefix+".conn_max_lifetime", d.ConnMaxLifetime)
}

// Validate проверяет конфигурацию и возвращает все найденные ошибки сразу
func (c *ETLConfig) Validate() error {
	var errs []error

	errs = append(errs, c.Warehouse.validate("warehouse")...)

	switch c.Source.Type {
	case SourceCSV:
		if c.Source.Dir == "" {
			errs = append(errs, errors.New("source.dir обязателен для источника csv"))
		}
		if c.Source.ProductsFile == "" || c.Source.ClientsFile == "" || c.Source.SalesFile == "" {
			errs = append(errs, errors.New("source.*_file не могут быть пустыми"))
		}
	case SourceSQL:
		errs = append(errs, c.Source.Database.validate("source.database")...)
		if c.Source.Database.Driver == DriverMemory {
			errs = append(errs, errors.New("source.database.driver не может быть memory"))
		}
		if c.Source.ProductsTable == "" || c.Source.ClientsTable == "" || c.Source.SalesTable == "" {
			errs = append(errs, errors.New("source.*_table не могут быть пустыми"))
		}
	default:
		errs = append(errs, fmt.Errorf("source.type должен быть csv или sql, получено %q", c.Source.Type))
	}

	if c.ETL.RunInterval <= 0 {
		errs = append(errs, errors.New("etl.run_interval должен быть положительным"))
	}
	if c.ETL.Timeout < 0 {
		errs = append(errs, errors.New("etl.timeout не может быть отрицательным"))
	}

	if c.Normalize.DefaultEmail == "" {
		errs = append(errs, errors.New("normalize.default_email не может быть пустым"))
	}

	if _, err := utils.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (d DatabaseConfig) validate(prefix string) []error {
	var errs []error

	switch d.Driver {
	case DriverMemory:
		return nil
	case DriverMySQL, DriverPostgres, DriverPgx:
	default:
		return []error{fmt.Errorf("%s.driver: %w: %q", prefix, ErrUnknownDriver, d.Driver)}
	}

	if d.URL != "" {
		return nil
	}
	if d.Host == "" {
		errs = append(errs, fmt.Errorf("%s.host обязателен", prefix))
	}
	if d.Port <= 0 || d.Port > 65535 {
		errs = append(errs, fmt.Errorf("%s.port (%d) должен быть в диапазоне 1-65535", prefix, d.Port))
	}
	if d.DBName == "" {
		errs = append(errs, fmt.Errorf("%s.dbname обязателен", prefix))
	}
	if d.MaxOpenConns < d.MaxIdleConns {
		errs = append(errs, fmt.Errorf("%s.max_open_conns (%d) должен быть >= max_idle_conns (%d)",
			prefix, d.MaxOpenConns, d.MaxIdleConns))
	}
	return errs
}

// DSN строит строку подключения для драйвера
func (d DatabaseConfig) DSN() (string, error) {
	if d.URL != "" {
		return d.URL, nil
	}

	addr := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))

	switch d.Driver {
	case DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = d.User
		mc.Passwd = d.Password
		mc.Net = "tcp"
		mc.Addr = addr
		mc.DBName = d.DBName
		mc.ParseTime = true
		mc.Loc = time.UTC
		return mc.FormatDSN(), nil
	case DriverPostgres, DriverPgx:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(d.User, d.Password),
			Host:   addr,
			Path:   "/" + d.DBName,
		}
		if d.SSLMode != "" {
			u.RawQuery = url.Values{"sslmode": []string{d.SSLMode}}.Encode()
		}
		return u.String(), nil
	case DriverMemory:
		return "", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDriver, d.Driver)
	}
}

// MaskedDSN возвращает строку подключения без пароля, пригодную для логов
func (d DatabaseConfig) MaskedDSN() string {
	dsn, err := d.DSN()
	if err != nil || dsn == "" {
		return dsn
	}

	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.User != nil {
		return u.Redacted()
	}

	if mc, err := mysql.ParseDSN(dsn); err == nil {
		if mc.Passwd != "" {
			mc.Passwd = "***"
		}
		return mc.FormatDSN()
	}

	return "***"
}
