// Copyright 2023-2024 daviszhen
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
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/daviszhen/groupby/pkg/runner"
	"github.com/daviszhen/groupby/pkg/source"
	"github.com/daviszhen/groupby/pkg/util"
)

func init() {
	cobra.OnInitialize(loadConfig)
	initRootCmd()
	initRunCmd()
	RootCmd.AddCommand(explainCmd)
	RootCmd.AddCommand(functionsCmd)
}

var groupbyCfg = &util.Config{}

var cfgFile string

///root cmd

var info = "group by aggregation over csv and parquet tables"
var RootCmd = &cobra.Command{
	Use:          "groupby",
	Short:        info,
	Long:         info,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("use groupby --help or -h")
	},
}

func initRootCmd() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file. default ./groupby.toml or etc/groupby.toml")
	RootCmd.PersistentFlags().String("log_level", "", "debug, info, warn, error")
	RootCmd.PersistentFlags().String("hash_method", "", "auto, u8, u16, u32, u64, u128, u256, serializer")
	RootCmd.PersistentFlags().Int("parallelism", 0, "concurrent ingestion callers")
	RootCmd.PersistentFlags().Int("batch_size", 0, "rows per input block")
	RootCmd.PersistentFlags().Bool("verify_states", false, "check every state access")
	RootCmd.PersistentFlags().Bool("print_layout", false, "log the state layout")

	viper.BindPFlag("debug.logLevel", RootCmd.PersistentFlags().Lookup("log_level"))
	viper.BindPFlag("aggregator.hashMethod", RootCmd.PersistentFlags().Lookup("hash_method"))
	viper.BindPFlag("aggregator.parallelism", RootCmd.PersistentFlags().Lookup("parallelism"))
	viper.BindPFlag("aggregator.batchSize", RootCmd.PersistentFlags().Lookup("batch_size"))
	viper.BindPFlag("aggregator.verifyStates", RootCmd.PersistentFlags().Lookup("verify_states"))
	viper.BindPFlag("debug.printLayout", RootCmd.PersistentFlags().Lookup("print_layout"))
}

func initAggregatorOptions() {
	groupbyCfg.Aggregator.ArenaChunkSize = viper.GetInt("aggregator.arenaChunkSize")
	groupbyCfg.Aggregator.InitialCapacity = viper.GetInt("aggregator.initialCapacity")
	groupbyCfg.Aggregator.BatchSize = viper.GetInt("aggregator.batchSize")
	groupbyCfg.Aggregator.Parallelism = viper.GetInt("aggregator.parallelism")
	groupbyCfg.Aggregator.HashMethod = viper.GetString("aggregator.hashMethod")
	groupbyCfg.Aggregator.VerifyStates = viper.GetBool("aggregator.verifyStates")
}

func initDebugOptions() {
	groupbyCfg.Debug.LogLevel = viper.GetString("debug.logLevel")
	groupbyCfg.Debug.PrintLayout = viper.GetBool("debug.printLayout")
}

func initCfg() error {
	initAggregatorOptions()
	initDebugOptions()
	groupbyCfg.Tables = nil
	if err := viper.UnmarshalKey("tables", &groupbyCfg.Tables); err != nil {
		return err
	}
	groupbyCfg.Fill()
	return util.SetLogLevel(groupbyCfg.Debug.LogLevel)
}

func sqlArg(args []string) (string, error) {
	sql := strings.TrimSpace(strings.Join(args, " "))
	if sql == "" {
		return "", fmt.Errorf("need a query")
	}
	return sql, nil
}

//run cmd

var runOutput string
var runFinal bool

var runInfo = "run a group by query and print the partial states"
var runCmd = &cobra.Command{
	Use:   "run <sql>",
	Short: runInfo,
	Long:  runInfo,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initCfg(); err != nil {
			return err
		}
		sql, err := sqlArg(args)
		if err != nil {
			return err
		}
		util.Info("run query", zap.String("query", sql))
		res, err := runner.Run(context.Background(), groupbyCfg, sql, runFinal)
		if err != nil {
			return err
		}
		if runOutput != "" {
			if err = source.WriteParquet(runOutput, res.Partial); err != nil {
				return err
			}
			util.Info("partial states saved",
				zap.String("path", runOutput),
				zap.Int("groups", res.Groups))
		}
		if res.Final != nil {
			res.Final.Print(os.Stdout)
		} else if runOutput == "" {
			res.Partial.Print(os.Stdout)
		}
		return nil
	},
}

func initRunCmd() {
	RootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runOutput, "output", "", "write the partial states to a parquet file")
	runCmd.Flags().BoolVar(&runFinal, "final", false, "print final values instead of partial states")
}

//explain cmd

var explainInfo = "print the state layout of a group by query"
var explainCmd = &cobra.Command{
	Use:   "explain <sql>",
	Short: explainInfo,
	Long:  explainInfo,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initCfg(); err != nil {
			return err
		}
		sql, err := sqlArg(args)
		if err != nil {
			return err
		}
		out, err := runner.Explain(groupbyCfg, sql)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

//functions cmd

var functionsInfo = "list the aggregate functions"
var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: functionsInfo,
	Long:  functionsInfo,
	Run: func(cmd *cobra.Command, args []string) {
		for _, fun := range runner.Functions() {
			fmt.Printf("%-24s %s\n", fun.Name, fun.Desc)
		}
	},
}

func loadConfig() {
	fpath := cfgFile
	if fpath == "" {
		var has bool
		fpath, has = util.FindConfigFile()
		if !has {
			util.Warn("groupby.toml does not exist. use default config")
			return
		}
	}
	viper.SetConfigFile(fpath)
	viper.SetConfigType("toml")
	err := viper.ReadInConfig()
	if err != nil {
		util.Error("viper load config file failed",
			zap.String("fpath", fpath),
			zap.Error(err))
		os.Exit(1)
	}
	util.Info("config loaded", zap.String("fpath", fpath))
}

func main() {
	defer util.Sync()
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
