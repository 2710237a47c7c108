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
	"os"

	wire "github.com/jeroenrinzema/psql-wire"
	"github.com/lib/pq/oid"
	"go.uber.org/zap"

	"github.com/daviszhen/groupby/pkg/chunk"
	"github.com/daviszhen/groupby/pkg/common"
	"github.com/daviszhen/groupby/pkg/runner"
	"github.com/daviszhen/groupby/pkg/util"
)

var runCfg *util.Config

func init() {
	loadConfig()
}

func loadConfig() {
	fpath, has := util.FindConfigFile()
	if !has {
		util.Error("groupby.toml does not exist")
		os.Exit(1)
	}
	var err error
	runCfg, err = util.LoadConfig(fpath)
	if err != nil {
		os.Exit(1)
	}
	if err = util.SetLogLevel(runCfg.Debug.LogLevel); err != nil {
		util.Error("invalid log level", zap.Error(err))
		os.Exit(1)
	}
}

func main() {
	util.Info("listen", zap.String("addr", runCfg.Server.Addr))
	err := wire.ListenAndServe(runCfg.Server.Addr, handler)
	if err != nil {
		util.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func handler(ctx context.Context, query string) (wire.PreparedStatements, error) {
	util.Info("incoming SQL :", zap.String("query", query))
	res, err := runner.Run(ctx, runCfg, query, true)
	if err != nil {
		util.Warn("query failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	execCtx := ExecCtx{
		result: res.Final,
	}
	return wire.Prepared(
		wire.NewStatement(execCtx.handleX,
			wire.WithColumns(execCtx.Columns()),
		),
	), nil
}

type ExecCtx struct {
	result *chunk.Chunk
}

func columnOid(typ common.LType) oid.Oid {
	switch typ.GetInternalType() {
	case common.BOOL:
		return oid.T_bool
	case common.INT8, common.INT16, common.INT32, common.INT64:
		return oid.T_int8
	case common.FLOAT, common.DOUBLE:
		return oid.T_float8
	default:
		return oid.T_varchar
	}
}

func (exec *ExecCtx) Columns() wire.Columns {
	cols := make(wire.Columns, 0, exec.result.ColumnCount())
	for i, name := range exec.result.Names {
		typ := exec.result.Data[i].Typ()
		cols = append(cols, wire.Column{
			Name:  name,
			Oid:   columnOid(typ),
			Width: int16(typ.GetInternalType().Size()),
		})
	}
	return cols
}

func wireValue(val *chunk.Value) any {
	if val.IsNull {
		return nil
	}
	switch columnOid(val.Typ) {
	case oid.T_bool:
		return val.Bool
	case oid.T_int8:
		return val.I64
	case oid.T_float8:
		return val.F64
	default:
		return val.String()
	}
}

func (exec *ExecCtx) handleX(ctx context.Context, writer wire.DataWriter, parameters []wire.Parameter) error {
	row := make([]any, exec.result.ColumnCount())
	for i := 0; i < exec.result.Card(); i++ {
		for j, vec := range exec.result.Data {
			row[j] = wireValue(vec.GetValue(i))
		}
		if err := writer.Row(row); err != nil {
			return err
		}
	}
	return writer.Complete("SELECT")
}
