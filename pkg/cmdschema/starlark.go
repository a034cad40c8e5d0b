package cmdschema

import (
	"context"
	"os"
	"runtime"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.starlark.net/starlark"
)

type scriptCtx struct {
	ctx      context.Context
	filename string
}

// * Helpers

func getCtx(thread *starlark.Thread) *scriptCtx {
	return thread.Local("scriptCtx").(*scriptCtx)
}

func scriptLog(thread *starlark.Thread, warning bool, msg string) {
	ctx := getCtx(thread)
	pos := thread.CallFrame(1).Pos

	level := zerolog.InfoLevel
	if warning {
		level = zerolog.WarnLevel
	}
	log(ctx.ctx).WithLevel(level).
		Str("path", ctx.filename).
		Int32("line", pos.Line).
		Int32("col", pos.Col).
		Msg(msg)
}

type starlarkIterable interface {
	Len() int
	Iterate() starlark.Iterator
}

// starlarkToRaw converts a Starlark value into the raw declaration tree.
func starlarkToRaw(value starlark.Value) (interface{}, error) {
	switch value := value.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.String:
		return value.GoString(), nil
	case starlark.Bool:
		return bool(value), nil
	case starlark.Int:
		i, ok := value.Int64()
		if !ok {
			return nil, eris.Errorf("integer %s is out of range", value.String())
		}
		return i, nil
	case starlark.Float:
		return float64(value), nil
	case *starlark.Dict:
		result := make(map[string]interface{}, value.Len())
		for _, item := range value.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, eris.Errorf("found key of type %s in dict but only strings are supported", item[0].Type())
			}

			converted, err := starlarkToRaw(item[1])
			if err != nil {
				return nil, eris.Wrapf(err, "in key %s", key.GoString())
			}
			result[key.GoString()] = converted
		}
		return result, nil
	case starlarkIterable:
		result := make([]interface{}, 0, value.Len())
		iter := value.Iterate()
		defer iter.Done()

		var item starlark.Value
		for iter.Next(&item) {
			converted, err := starlarkToRaw(item)
			if err != nil {
				return nil, err
			}
			result = append(result, converted)
		}
		return result, nil
	}

	return nil, eris.Errorf("unsupported value of type %s", value.Type())
}

// * Builtin functions

func starInfo(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var message string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message)
	if err != nil {
		return nil, err
	}

	scriptLog(thread, false, message)
	return starlark.None, nil
}

func starWarn(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var message string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message)
	if err != nil {
		return nil, err
	}

	scriptLog(thread, true, message)
	return starlark.None, nil
}

func getenv(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string
	var defaultValue string

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "key", &key, "default?", &defaultValue)
	if err != nil {
		return nil, err
	}

	value, ok := os.LookupEnv(key)
	if !ok {
		value = defaultValue
	}
	return starlark.String(value), nil
}

// readStarlark executes a schema script and returns its declarations. The script declares them either in a
// global named additional_commands, in a global dict named parse with an additional_commands entry, or
// inside a cmake-format `with section("parse"):` block.
func readStarlark(ctx context.Context, filename string, data []byte) (interface{}, error) {
	builtins := starlark.StringDict{
		"OS":     starlark.String(runtime.GOOS),
		"ARCH":   starlark.String(runtime.GOARCH),
		"info":   starlark.NewBuiltin("info", starInfo),
		"warn":   starlark.NewBuiltin("warn", starWarn),
		"getenv": starlark.NewBuiltin("getenv", getenv),
	}

	thread := &starlark.Thread{
		Name: "schema",
		Print: func(thread *starlark.Thread, msg string) {
			log(ctx).Info().Str("thread", thread.Name).Msg(msg)
		},
	}
	thread.SetLocal("scriptCtx", &scriptCtx{ctx: ctx, filename: filename})

	source, sections := splitSections(data)
	globals, err := execStarlark(thread, filename, source, builtins)
	if err != nil {
		return nil, err
	}

	root := make(map[string]interface{})
	for _, name := range []string{declarationsKey, parseSection} {
		value, ok := globals[name]
		if !ok {
			continue
		}

		converted, err := starlarkToRaw(value)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to convert global %s", name)
		}
		root[name] = converted
		break
	}

	if len(sections) > 0 {
		// sections see the builtins and the file's top-level globals
		predeclared := make(starlark.StringDict, len(builtins)+len(globals))
		for name, value := range builtins {
			predeclared[name] = value
		}
		for name, value := range globals {
			predeclared[name] = value
		}

		for _, section := range sections {
			sectionGlobals, err := execStarlark(thread, filename, section.source, predeclared)
			if err != nil {
				return nil, eris.Wrapf(err, "failed to execute section %s", section.name)
			}
			if section.name != parseSection || len(root) > 0 {
				continue
			}

			parse := make(map[string]interface{})
			if value, ok := sectionGlobals[declarationsKey]; ok {
				parse[declarationsKey], err = starlarkToRaw(value)
				if err != nil {
					return nil, eris.Wrapf(err, "failed to convert %s in section %s", declarationsKey, section.name)
				}
			}
			root[parseSection] = parse
		}
	}

	if len(root) == 0 {
		return nil, eris.Errorf("%s does not declare %s", filename, declarationsKey)
	}
	return root, nil
}

func execStarlark(thread *starlark.Thread, filename string, source []byte, predeclared starlark.StringDict) (starlark.StringDict, error) {
	globals, err := starlark.ExecFile(thread, filename, source, predeclared)
	if err != nil {
		if evalError, ok := err.(*starlark.EvalError); ok {
			return nil, eris.Errorf("failed to execute %s:\n%s", filename, evalError.Backtrace())
		}
		return nil, eris.Wrapf(err, "failed to execute %s", filename)
	}
	return globals, nil
}
