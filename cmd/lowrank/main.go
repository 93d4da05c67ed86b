// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/gorse-io/lowrank/base/log"
	"github.com/gorse-io/lowrank/config"
	"github.com/gorse-io/lowrank/logics"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "lowrank",
	Short: "Evaluate CUR, SVD and k-NN approximations of a ratings matrix",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debug)
		log.WithRunID(uuid.New().String())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.CloseLogger()
	},
}

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split ratings into train and test sets and save them with the training matrix",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		if output, _ := cmd.Flags().GetString("output"); output != "" {
			cfg.Output.Dir = output
		}
		if cfg.Output.Dir == "" {
			log.Logger().Fatal("output directory is required")
		}
		data := loadData(cfg)
		if err := data.Save(cfg.Output.Dir); err != nil {
			log.Logger().Fatal("failed to save dataset", zap.Error(err))
		}
		users, items := data.Matrix.Dims()
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Train", "Test", "Users", "Items", "Observed")
		_ = table.Append([]string{
			fmt.Sprint(len(data.Train)),
			fmt.Sprint(len(data.Test)),
			fmt.Sprint(users),
			fmt.Sprint(items),
			fmt.Sprint(data.Matrix.CountObserved()),
		})
		_ = table.Render()
	},
}

var curCmd = &cobra.Command{
	Use:   "cur",
	Short: "Evaluate CUR decomposition",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		if cmd.Flags().Changed("num-samples") {
			cfg.CUR.NumSamples, _ = cmd.Flags().GetInt("num-samples")
		}
		if cmd.Flags().Changed("threshold") {
			cfg.CUR.Energy, _ = cmd.Flags().GetFloat64("threshold")
		}
		if cmd.Flags().Changed("random-state") {
			cfg.CUR.RandomState, _ = cmd.Flags().GetInt64("random-state")
		}
		energy, _ := cmd.Flags().GetBool("energy")
		pipeline := logics.NewPipeline(cfg, loadData(cfg))
		report, err := pipeline.RunCUR(energy)
		if err != nil {
			log.Logger().Fatal("failed to evaluate CUR", zap.Error(err))
		}
		printReports(report)
	},
}

var svdCmd = &cobra.Command{
	Use:   "svd",
	Short: "Evaluate truncated singular value decomposition",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		if cmd.Flags().Changed("energy") {
			cfg.SVD.Energy, _ = cmd.Flags().GetFloat64("energy")
		}
		if cmd.Flags().Changed("rank") {
			cfg.SVD.Rank, _ = cmd.Flags().GetInt("rank")
		}
		pipeline := logics.NewPipeline(cfg, loadData(cfg))
		report, err := pipeline.RunSVD()
		if err != nil {
			log.Logger().Fatal("failed to evaluate SVD", zap.Error(err))
		}
		printReports(report)
	},
}

var knnCmd = &cobra.Command{
	Use:   "knn",
	Short: "Evaluate user based k-NN",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		if cmd.Flags().Changed("k") {
			cfg.KNN.K, _ = cmd.Flags().GetInt("k")
		}
		if cmd.Flags().Changed("baseline") {
			cfg.KNN.Baseline, _ = cmd.Flags().GetBool("baseline")
		}
		pipeline := newPipeline(cfg)
		report, err := pipeline.RunKNN(cfg.KNN.Baseline)
		if err != nil {
			log.Logger().Fatal("failed to evaluate k-NN", zap.Error(err))
		}
		printReports(report)
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate every configured method",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		if cmd.Flags().Changed("methods") {
			cfg.Evaluate.Methods, _ = cmd.Flags().GetStringSlice("methods")
			if err := cfg.Validate(); err != nil {
				log.Logger().Fatal("invalid methods", zap.Error(err))
			}
		}
		pipeline := newPipeline(cfg)
		reports, err := pipeline.RunAll(cfg.Evaluate.Methods)
		if err != nil {
			log.Logger().Fatal("failed to evaluate", zap.Error(err))
		}
		printReports(reports...)
	},
}

func loadConfig(cmd *cobra.Command) *config.Config {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Logger().Fatal("failed to load config", zap.Error(err))
	}
	if cmd.Flags().Changed("top-k") {
		cfg.Evaluate.TopK, _ = cmd.Flags().GetInt("top-k")
	}
	return cfg
}

func loadData(cfg *config.Config) *logics.Data {
	data, err := logics.LoadData(cfg.Dataset)
	if err != nil {
		log.Logger().Fatal("failed to load dataset", zap.Error(err))
	}
	return data
}

func newPipeline(cfg *config.Config) *logics.Pipeline {
	pipeline := logics.NewPipeline(cfg, loadData(cfg))
	pipeline.SetProgress(func(description string, total int) logics.Progress {
		return progressbar.Default(int64(total), description)
	})
	return pipeline
}

func printReports(reports ...*logics.Report) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Method", "Rank", "Train RMSE", "Test RMSE", "Spearman", "Precision", "Time")
	for _, report := range reports {
		_ = table.Append([]string{
			report.Method,
			fmt.Sprint(report.Rank),
			fmt.Sprintf("%.6f", report.TrainRMSE),
			fmt.Sprintf("%.6f", report.TestRMSE),
			fmt.Sprintf("%.6f", report.Spearman),
			fmt.Sprintf("%.6f", report.Precision),
			report.Duration.String(),
		})
	}
	if err := table.Render(); err != nil {
		log.Logger().Error("failed to render report", zap.Error(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().Bool("debug", false, "Debug log mode")
	rootCmd.PersistentFlags().Int("top-k", 0, "Number of top rated items in precision")
	log.AddFlags(rootCmd.PersistentFlags())

	splitCmd.Flags().StringP("output", "o", "", "Output directory")
	curCmd.Flags().Bool("energy", false, "Build the core from the energy truncated decomposition")
	curCmd.Flags().IntP("num-samples", "r", 0, "Number of sampled rows and columns")
	curCmd.Flags().Float64("threshold", 0, "Energy retained by the core")
	curCmd.Flags().Int64("random-state", 0, "Random seed of sampling")
	svdCmd.Flags().Float64("energy", 0, "Energy retained by the decomposition")
	svdCmd.Flags().Int("rank", 0, "Number of retained components, overrides energy")
	knnCmd.Flags().IntP("k", "k", 0, "Number of neighbors")
	knnCmd.Flags().Bool("baseline", false, "Remove global mean and item deviations")
	evaluateCmd.Flags().StringSlice("methods", nil, "Methods to evaluate")

	rootCmd.AddCommand(splitCmd, curCmd, svdCmd, knnCmd, evaluateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Logger().Fatal("failed to execute command", zap.Error(err))
	}
}
