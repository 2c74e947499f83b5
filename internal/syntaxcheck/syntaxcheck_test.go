package syntaxcheck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPython(t *testing.T) {
	ctx := context.Background()
	valid := []byte("from fastapi import FastAPI\n\napp = FastAPI()\n\n@app.get('/')\ndef root():\n    return {'ok': True}\n")
	require.NoError(t, Check(ctx, "backend/main.py", valid))

	broken := []byte("def root(:\n    return 1\n")
	err := Check(ctx, "backend/main.py", broken)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyntax)

	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "backend/main.py", se.Path)
	assert.Equal(t, 1, se.At.Line)
}

func TestCheckJavaScript(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, Check(ctx, "frontend/app.js", []byte("const x = () => { return 1; };\n")))
	assert.ErrorIs(t, Check(ctx, "frontend/app.js", []byte("function (\n")), ErrSyntax)
}

func TestCheckSkipsUnsupportedAndEmpty(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, Check(ctx, "frontend/index.html", []byte("<div")))
	assert.NoError(t, Check(ctx, "requirements.txt", []byte("fastapi==")))
	assert.NoError(t, Check(ctx, "backend/__init__.py", []byte("  \n")))
	assert.True(t, Supported("a/b.PY"))
	assert.False(t, Supported("a/b.css"))
}
