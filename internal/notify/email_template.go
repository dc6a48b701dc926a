package notify

// emailHTMLTemplate renders an emailView. Styles are inline and the layout
// uses tables so the card survives webmail clients.
const emailHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{.Announcement.StockCode}} {{.Announcement.Title}}</title>
</head>
<body style="margin:0;padding:24px 12px;background:#eef0f3;font-family:Helvetica,Arial,sans-serif;color:#1f2933;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
    <tr><td align="center">
      <table role="presentation" width="600" cellspacing="0" cellpadding="0" style="max-width:600px;background:#ffffff;border-radius:10px;overflow:hidden;">
        <tr>
          <td style="padding:22px 28px;background:{{.Theme.BackgroundFrom}};background-image:linear-gradient(120deg, {{.Theme.BackgroundFrom}}, {{.Theme.BackgroundTo}});color:{{.Theme.Text}};">
            <span class="badge badge-{{.Announcement.Severity}}" style="display:inline-block;padding:3px 9px;border-radius:3px;font-size:11px;font-weight:bold;letter-spacing:1px;background:{{.Theme.Accent}};color:#111111;">{{.Theme.Icon}} {{.Theme.Label}}</span>
            <h1 style="margin:12px 0 4px;font-size:21px;line-height:1.3;">{{.Announcement.Title}}</h1>
            {{with .Company}}<div style="font-size:14px;color:{{$.Theme.Muted}};">{{.}}</div>{{end}}
          </td>
        </tr>

        {{if .Announcement.Summary}}
        <tr>
          <td style="padding:20px 28px 8px;font-size:15px;line-height:1.55;">{{.Announcement.Summary}}</td>
        </tr>
        {{end}}

        <tr>
          <td style="padding:12px 28px;">
            <table role="presentation" cellspacing="0" cellpadding="0" style="font-size:13px;color:#52606d;">
              {{with .Announcement.FilingType}}<tr><td style="padding:3px 14px 3px 0;">Filing</td><td style="color:#1f2933;">{{.}}</td></tr>{{end}}
              {{with .Announcement.Subject}}<tr><td style="padding:3px 14px 3px 0;">Subject</td><td style="color:#1f2933;">{{.}}</td></tr>{{end}}
              {{with .Announcement.Timestamp}}<tr><td style="padding:3px 14px 3px 0;">Filed</td><td style="color:#1f2933;">{{.}}</td></tr>{{end}}
              <tr><td style="padding:3px 14px 3px 0;">Delivered</td><td style="color:#1f2933;">{{.Sent}} &middot; {{.JID}}</td></tr>
              {{if .Announcement.Tickers}}<tr><td style="padding:3px 14px 3px 0;">Tickers</td><td>{{range .Announcement.Tickers}}<span style="display:inline-block;margin:0 4px 2px 0;padding:1px 7px;border:1px solid {{$.Theme.Accent}};border-radius:10px;color:#1f2933;">${{.}}</span>{{end}}</td></tr>{{end}}
            </table>
          </td>
        </tr>

        {{with .Link}}
        <tr>
          <td style="padding:8px 28px 24px;">
            <a href="{{.}}" target="_blank" rel="noopener" style="display:inline-block;padding:9px 18px;border-radius:5px;background:{{$.Theme.BackgroundTo}};color:#ffffff;font-size:14px;font-weight:bold;text-decoration:none;">Open filing document</a>
          </td>
        </tr>
        {{end}}

        <tr>
          <td style="padding:14px 28px;background:#f7f8fa;font-size:11px;color:#8795a1;">
            Card image attached. Message {{.MessageID}}.
          </td>
        </tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`
