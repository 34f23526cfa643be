package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LilVoxy/sales_warehouse/ETL/config"
	"github.com/LilVoxy/sales_warehouse/ETL/utils"
)

var (
	configPath string
	dryRun     bool
)

// rootCmd - корневая команда salesetl
var rootCmd = &cobra.Command{
	Use:   "salesetl",
	Short: "ETL продаж в звездную схему хранилища",
	Long: `Загружает продукты, клиентов и продажи из CSV-файлов или промежуточных
таблиц OLTP БД, очищает их и загружает в измерения и таблицу фактов хранилища.`,
	Example: `  # Однократный запуск
  $ salesetl run --config configs/salesetl.yaml

  # Пробный запуск в хранилище в памяти
  $ salesetl run --dry-run

  # Запуск по расписанию
  $ salesetl schedule`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Выполнить ETL один раз",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd.Context(), func(ctx context.Context, runner *ETLRunner) error {
			outcome, err := runner.ExecuteETL(ctx)
			if err != nil {
				return err
			}
			printOutcome(outcome)
			return nil
		})
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Выполнять ETL по расписанию (etl.run_interval)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd.Context(), func(ctx context.Context, runner *ETLRunner) error {
			return runner.StartScheduler(ctx)
		})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Показать количество строк в таблицах хранилища",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd.Context(), func(ctx context.Context, runner *ETLRunner) error {
			sum, err := runner.Summary(ctx)
			if err != nil {
				return err
			}
			fmt.Println(sum.Render())
			return nil
		})
	},
}

var initLogCmd = &cobra.Command{
	Use:   "init-log",
	Short: "Создать таблицу журнала запусков etl_run_log",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd.Context(), func(ctx context.Context, runner *ETLRunner) error {
			if err := runner.InitLog(ctx); err != nil {
				return err
			}
			PrintSuccess("Таблица журнала запусков готова")
			return nil
		})
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "путь к файлу конфигурации")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "загрузить в хранилище в памяти")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(initLogCmd)
}

// withRunner читает конфигурацию, создает логгер и ETLRunner и гарантированно
// освобождает соединения после выполнения fn
func withRunner(ctx context.Context, fn func(context.Context, *ETLRunner) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dryRun {
		cfg.Warehouse.Driver = config.DriverMemory
	}

	logger, err := utils.NewETLLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Close()

	runner, err := NewETLRunner(ctx, *cfg, logger)
	if err != nil {
		return fmt.Errorf("ошибка при создании ETL Runner: %w", err)
	}
	defer runner.Close()

	return fn(ctx, runner)
}

func main() {
	// Контекст отменяется при получении сигнала завершения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		PrintError("%v", err)
		stop()
		os.Exit(1)
	}
}
