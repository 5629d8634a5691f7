package dashboard

const layoutHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>compscout</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: 'Inter', -apple-system, system-ui, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; }
        a { color: #38bdf8; text-decoration: none; }
        .header { background: linear-gradient(135deg, #1e293b, #334155); padding: 1.5rem 2rem; border-bottom: 1px solid #475569; display: flex; justify-content: space-between; align-items: center; }
        .header h1 { font-size: 1.5rem; background: linear-gradient(135deg, #38bdf8, #818cf8); background-clip: text; -webkit-background-clip: text; -webkit-text-fill-color: transparent; }
        .main { padding: 2rem; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(200px, 1fr)); gap: 1rem; margin: 1.5rem 0; }
        .card { background: #1e293b; border: 1px solid #334155; border-radius: 12px; padding: 1.5rem; }
        .card .label { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.05em; color: #94a3b8; margin-bottom: 0.5rem; }
        .card .value { font-size: 1.5rem; font-weight: 700; color: #f1f5f9; }
        .caption { color: #94a3b8; font-size: 0.875rem; margin-top: 0.25rem; }
        table { width: 100%; border-collapse: collapse; margin-top: 1rem; }
        th, td { text-align: left; padding: 0.6rem; border-bottom: 1px solid #334155; font-size: 0.875rem; }
        th { color: #94a3b8; text-transform: uppercase; font-size: 0.75rem; }
        form { display: inline-flex; gap: 0.5rem; margin: 0.5rem 0.5rem 0.5rem 0; }
        input { background: #0f172a; color: #e2e8f0; border: 1px solid #475569; border-radius: 6px; padding: 0.4rem 0.6rem; }
        button { background: #38bdf8; color: #0f172a; border: none; border-radius: 6px; padding: 0.4rem 0.9rem; font-weight: 600; cursor: pointer; }
        button.danger { background: #f87171; }
        .pager { display: flex; gap: 1rem; align-items: center; margin-top: 1rem; color: #94a3b8; }
        .product img { max-width: 160px; border-radius: 8px; float: right; }
        pre#analysis { white-space: pre-wrap; background: #1e293b; padding: 1rem; border-radius: 8px; margin-top: 1rem; }
        .footer { text-align: center; padding: 1rem; color: #475569; font-size: 0.75rem; }
    </style>
</head>
<body>
    <div class="header">
        <h1><a href="/">compscout</a></h1>
        <span class="caption">Competitor discovery</span>
    </div>
    <div class="main">
{{template "content" .}}
    </div>
    <div class="footer">compscout {{.Version}}</div>
    <script>
        async function submitJSON(form, method) {
            const body = {};
            new FormData(form).forEach((v, k) => { if (v !== '') body[k] = /^\d+$/.test(v) ? Number(v) : v; });
            const out = document.getElementById('status');
            out.textContent = 'Working...';
            const r = await fetch(form.getAttribute('action'), {
                method: method || form.getAttribute('method') || 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify(body),
            });
            const d = await r.json().catch(() => ({}));
            if (!r.ok) { out.textContent = d.error || ('HTTP ' + r.status); return false; }
            if (d.text) { document.getElementById('analysis').textContent = d.text; out.textContent = ''; return false; }
            if (form.dataset.redirect) { window.location = form.dataset.redirect.replace(':id', d.id || ''); return false; }
            window.location.reload();
            return false;
        }
    </script>
</body>
</html>`

const listHTML = `{{define "content"}}
        <form id="scrape-form" action="/api/v1/products" method="POST" data-redirect="/products/:id" onsubmit="return submitJSON(this)">
            <input name="id" placeholder="ASIN, e.g. B0CX23V2ZK" required>
            <input name="domain" placeholder="com">
            <input name="geo_location" placeholder="Deliver to (zip or country)">
            <button type="submit">Scrape</button>
        </form>
        <span id="status" class="caption"></span>
        {{if .Products}}
        <table id="products">
            <thead><tr><th>ID</th><th>Title</th><th>Price</th><th>Rating</th><th>Domain</th></tr></thead>
            <tbody>
            {{range .Products}}
                <tr class="product-row">
                    <td><a href="/products/{{.ID}}">{{.ID}}</a></td>
                    <td>{{.Title}}</td>
                    <td>{{price .Currency .Price}}</td>
                    <td>{{number .Rating}}</td>
                    <td>{{if .Domain}}{{.Domain}}{{else}}com{{end}}</td>
                </tr>
            {{end}}
            </tbody>
        </table>
        {{else}}
        <p id="empty" class="caption">No products scraped yet.</p>
        {{end}}
        <div class="pager">
            {{if .Page.HasPrev}}<a id="prev" href="/?page={{.Page.Prev}}">&larr; Prev</a>{{end}}
            <span id="page-label">{{.Page.Label}}</span>
            {{if .Page.HasNext}}<a id="next" href="/?page={{.Page.Next}}">Next &rarr;</a>{{end}}
        </div>
{{end}}`

const productHTML = `{{define "content"}}
        {{with .Product}}
        <div class="product card">
            {{if .Images}}<img src="{{index .Images 0}}" alt="{{.Title}}">{{end}}
            <h2 id="title">{{.Title}}</h2>
            <div id="caption" class="caption">{{$.Caption}}</div>
            <div class="grid">
                <div class="card"><div class="label">Price</div><div class="value" id="price">{{price .Currency .Price}}</div></div>
                <div class="card"><div class="label">Rating</div><div class="value">{{number .Rating}}</div></div>
                <div class="card"><div class="label">Brand</div><div class="value">{{if .Brand}}{{.Brand}}{{else}}N/A{{end}}</div></div>
            </div>
            {{if .Categories}}<div class="caption">Categories: {{join .Categories ", "}}</div>{{end}}
            {{if .URL}}<div class="caption"><a id="url" href="{{.URL}}" target="_blank" rel="noopener">{{.URL}}</a></div>{{end}}
        </div>
        {{end}}

        <form id="discover-form" action="/api/v1/products/{{.Product.ID}}/competitors" method="POST" onsubmit="return submitJSON(this)">
            <input name="pages" placeholder="pages (2)" size="8">
            <input name="limit" placeholder="limit (20)" size="8">
            <button type="submit">Find competitors</button>
        </form>
        {{if .AIEnabled}}
        <form id="analyze-form" action="/api/v1/products/{{.Product.ID}}/analysis" method="POST" onsubmit="return submitJSON(this)">
            <button type="submit">Analyze</button>
        </form>
        {{end}}
        <form id="clear-form" action="/api/v1/products/{{.Product.ID}}/competitors" method="DELETE" onsubmit="return submitJSON(this, 'DELETE')">
            <button type="submit" class="danger">Clear competitors</button>
        </form>
        <span id="status" class="caption"></span>

        <div class="grid" id="summary">
            <div class="card"><div class="label">Competitors</div><div class="value" id="summary-count">{{.Summary.Count}}</div></div>
            <div class="card"><div class="label">Avg price</div><div class="value" id="summary-avg">{{price .Summary.Currency .Summary.AvgPrice}}</div></div>
            <div class="card"><div class="label">Price range</div><div class="value" id="summary-range">{{price .Summary.Currency .Summary.MinPrice}} - {{price .Summary.Currency .Summary.MaxPrice}}</div></div>
            <div class="card"><div class="label">Avg rating</div><div class="value" id="summary-rating">{{number .Summary.AvgRating}}</div></div>
        </div>

        {{if .Competitors}}
        <a href="/api/v1/products/{{.Product.ID}}/competitors/export?format=csv">Export CSV</a> |
        <a href="/api/v1/products/{{.Product.ID}}/competitors/export?format=xlsx">Export XLSX</a>
        <table id="competitors">
            <thead><tr><th>ID</th><th>Title</th><th>Brand</th><th>Price</th><th>Rating</th><th>Reviews</th></tr></thead>
            <tbody>
            {{range .Competitors}}
                <tr class="competitor-row">
                    <td>{{if .URL}}<a href="{{.URL}}" target="_blank" rel="noopener">{{.ID}}</a>{{else}}{{.ID}}{{end}}</td>
                    <td>{{.Title}}</td>
                    <td>{{.Brand}}</td>
                    <td>{{price .Currency .Price}}</td>
                    <td>{{number .Rating}}</td>
                    <td>{{if .ReviewCount}}{{.ReviewCount}}{{end}}</td>
                </tr>
            {{end}}
            </tbody>
        </table>
        {{else}}
        <p id="no-competitors" class="caption">No competitors stored yet.</p>
        {{end}}
        <pre id="analysis"></pre>
{{end}}`
