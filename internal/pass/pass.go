// Package pass renders the printable event pass handed to approved teams.
package pass

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/memalihaider/umttechverse02-sub001/internal/service"
	"github.com/memalihaider/umttechverse02-sub001/internal/team"
)

// ContentType is the media type of every rendered pass
const ContentType = "text/html; charset=utf-8"

var passTemplate = template.Must(template.New("pass").Funcs(template.FuncMap{
	"cnic": team.FormatCNIC,
}).Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.EventName}} pass - {{.UniqueID}}</title>
    <style>
        body { font-family: Arial, sans-serif; color: #222; }
        .pass { max-width: 640px; margin: 24px auto; padding: 24px; border: 2px solid #1e3a8a; border-radius: 12px; }
        .id { font-size: 28px; font-weight: bold; letter-spacing: 2px; color: #1e3a8a; }
        table { width: 100%; border-collapse: collapse; margin-top: 16px; }
        th, td { text-align: left; padding: 6px; border-bottom: 1px solid #ddd; }
        .footer { margin-top: 16px; font-size: 12px; color: #666; }
        @media print { .pass { border-color: #000; } }
    </style>
</head>
<body>
    <div class="pass">
        <h1>{{.EventName}}</h1>
        <p class="id">{{.UniqueID}}</p>
        <p><strong>Team:</strong> {{.TeamName}}</p>
        <p><strong>Leader:</strong> {{.LeaderName}}</p>
        <p><strong>Module:</strong> {{.Module}}</p>
        {{- if .Members}}
        <table>
            <tr><th>Member</th><th>Email</th><th>CNIC</th></tr>
            {{- range .Members}}
            <tr><td>{{.Name}}</td><td>{{.Email}}</td><td>{{cnic .CNIC}}</td></tr>
            {{- end}}
        </table>
        {{- end}}
        <p class="footer">Issued {{.IssuedAt.Format "02 Jan 2006 15:04 MST"}}. Present this pass at the registration desk.</p>
    </div>
</body>
</html>
`))

type view struct {
	service.PassData
	EventName string
}

// Renderer renders passes as standalone HTML documents
type Renderer struct {
	eventName string
}

// NewRenderer creates a renderer that titles passes with eventName
func NewRenderer(eventName string) *Renderer {
	return &Renderer{eventName: eventName}
}

// Render implements service.PassRenderer
func (r *Renderer) Render(ctx context.Context, data service.PassData) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	if err := passTemplate.Execute(&buf, view{PassData: data, EventName: r.eventName}); err != nil {
		return nil, "", fmt.Errorf("failed to execute pass template: %w", err)
	}
	return buf.Bytes(), ContentType, nil
}
