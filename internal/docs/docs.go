// Package docs ships the API description served by the explorer endpoint.
package docs

import _ "embed"

//go:embed openapi.json
var OpenAPI []byte

// ExplorerPage is a minimal Swagger UI shell pointed at the embedded OpenAPI
// document.
const ExplorerPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8"/>
  <title>Sudo Humans API Explorer</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css"/>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = () => {
      SwaggerUIBundle({
        url: "explorer/openapi.json",
        dom_id: "#swagger-ui"
      });
    };
  </script>
</body>
</html>
`
