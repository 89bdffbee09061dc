package status

import (
	"html/template"
	"io"
)

// pageTemplate is the device status document. Consumers must tolerate
// added fields; the structure itself is fixed.
var pageTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
<head>
<title>{{.DeviceID}}</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
</head>
<body>
<h1>{{.DeviceID}}</h1>
<table>
<tr><td>IP address</td><td>{{.IPAddress}}</td></tr>
<tr><td>MAC address</td><td>{{.MACAddress}}</td></tr>
<tr><td>Free memory</td><td>{{.FreeMemoryBytes}} bytes</td></tr>
<tr><td>Uptime</td><td>{{.UptimeSeconds}} s</td></tr>
</table>
<p><a href="/stream">Live stream</a></p>
<img src="/stream" alt="camera stream">
</body>
</html>
`))

// Render writes the status document for s.
func Render(w io.Writer, s Snapshot) error {
	return pageTemplate.Execute(w, s)
}
