/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"log"

	"github.com/arslant84/l1a-test-sub000/internal/config"
	"github.com/arslant84/l1a-test-sub000/internal/database"
	"github.com/arslant84/l1a-test-sub000/internal/model"
	"github.com/arslant84/l1a-test-sub000/internal/repository"
	"github.com/spf13/cobra"
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the employee directory with sample data",
	Long: `Seed the employee directory with a sample organisation:
one approver per role (supervisor, training HR, CEO, capability management)
and a few employees reporting to the supervisor.

Intended for development and demo environments only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// 2. 连接数据库并迁移
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
		defer func() {
			sqlDB, _ := db.DB()
			if sqlDB != nil {
				sqlDB.Close()
			}
		}()

		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		// 3. 写入示例员工
		repo := repository.NewEmployeeRepository(db)
		supervisorID := "sup-001"

		employees := []*model.Employee{
			{ID: "ceo-001", Name: "Eleanor Voss", Email: "eleanor.voss@example.com", Department: "Executive", Role: model.RoleCEO},
			{ID: "thr-001", Name: "Marcus Lim", Email: "marcus.lim@example.com", Department: "Human Resources", Role: model.RoleTHR},
			{ID: "cm-001", Name: "Priya Nair", Email: "priya.nair@example.com", Department: "Capability Management", Role: model.RoleCM},
			{ID: supervisorID, Name: "Daniel Okafor", Email: "daniel.okafor@example.com", Department: "Engineering", Role: model.RoleSupervisor},
			{ID: "emp-001", Name: "Aisha Rahman", Email: "aisha.rahman@example.com", Department: "Engineering", Role: model.RoleEmployee, ManagerID: &supervisorID},
			{ID: "emp-002", Name: "Tomas Berg", Email: "tomas.berg@example.com", Department: "Engineering", Role: model.RoleEmployee, ManagerID: &supervisorID},
		}

		for _, emp := range employees {
			if err := repo.Save(emp); err != nil {
				return fmt.Errorf("failed to seed employee %s: %w", emp.ID, err)
			}
			log.Printf("Seeded employee %s (%s)", emp.ID, emp.Role)
		}

		log.Println("Employee directory seeded successfully!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().String("config", "", "Config file path (default: search in current directory, ./config, or $HOME/.l1a-training)")
}
