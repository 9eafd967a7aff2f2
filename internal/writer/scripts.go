package writer

// The serving helpers are generated verbatim; they are not derived from any
// fetched content.

const servePy = `#!/usr/bin/env python3
"""Serve this cloned site locally."""
import http.server
import socketserver
import sys

PORT = int(sys.argv[1]) if len(sys.argv) > 1 else 8000


class Handler(http.server.SimpleHTTPRequestHandler):
    extensions_map = {
        **http.server.SimpleHTTPRequestHandler.extensions_map,
        ".js": "application/javascript",
        ".css": "text/css",
        ".svg": "image/svg+xml",
        ".woff2": "font/woff2",
    }


if __name__ == "__main__":
    with socketserver.TCPServer(("", PORT), Handler) as httpd:
        print(f"Serving clone at http://localhost:{PORT}")
        httpd.serve_forever()
`

const serveSh = `#!/bin/sh
# Serve this cloned site locally on port 8000 (or the given port).
cd "$(dirname "$0")"
PORT="${1:-8000}"
if command -v python3 >/dev/null 2>&1; then
    exec python3 serve.py "$PORT"
elif command -v python >/dev/null 2>&1; then
    exec python serve.py "$PORT"
else
    echo "python3 is required to serve the clone" >&2
    exit 1
fi
`
