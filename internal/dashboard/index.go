package dashboard

import (
	"fmt"
	"net/http"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Presale</title>
  <style>
    body { margin:0; padding:2rem; background:#fff; color:#111;
           font-family:'Space Mono','JetBrains Mono',monospace; }
    #app { max-width:900px; margin:0 auto; background:#f6f6f6;
           border:3px solid #111; padding:2rem; box-shadow:12px 12px 0 rgba(0,0,0,.15); }
    h1 { font-size:1.1rem; text-transform:uppercase; letter-spacing:.2em; }
    table { width:100%; border-collapse:collapse; margin:1rem 0; }
    td, th { border:1px solid #9c9c9c; padding:.4rem .6rem; text-align:left; font-size:.85rem; }
    #bar { height:14px; background:#ddd; border:1px solid #111; }
    #bar > div { height:100%; background:#111; width:0; }
    #purchases li { font-size:.8rem; margin:.2rem 0; }
  </style>
</head>
<body>
  <div id="app">
    <h1>Presale dashboard</h1>
    <div>sale: <span id="status">…</span></div>
    <div>sold: <span id="sold">0</span> / <span id="forsale">0</span></div>
    <div id="bar"><div id="barfill"></div></div>
    <h1>Prices</h1>
    <table id="prices"><tr><th>token</th><th>price</th></tr></table>
    <h1>Balances</h1>
    <table id="balances"><tr><th>token</th><th>balance</th></tr></table>
    <h1>Purchases</h1>
    <ul id="purchases"></ul>
  </div>
  <script>
    const fill = (tableId, obj) => {
      const t = document.getElementById(tableId);
      t.innerHTML = '<tr><th>token</th><th>value</th></tr>';
      for (const [sym, v] of Object.entries(obj || {})) {
        const row = t.insertRow();
        row.insertCell().textContent = sym;
        row.insertCell().textContent = v;
      }
    };
    const snaps = new EventSource('/snapshot/stream');
    snaps.addEventListener('snapshot', (e) => {
      const s = JSON.parse(e.data);
      document.getElementById('status').textContent = s.SaleStatus ? 'open' : 'closed';
      document.getElementById('sold').textContent = s.TotalTokensSold;
      document.getElementById('forsale').textContent = s.TotalTokensForSale;
      const pct = +s.TotalTokensForSale ? (+s.TotalTokensSold / +s.TotalTokensForSale) * 100 : 0;
      document.getElementById('barfill').style.width = Math.min(pct, 100) + '%';
      fill('prices', s.Prices);
      fill('balances', s.Balances);
    });
    const purchases = new EventSource('/purchases/stream');
    purchases.addEventListener('purchase', (e) => {
      const p = JSON.parse(e.data);
      const li = document.createElement('li');
      li.textContent = p.kind + ' ' + (p.pay_amount || '') + ' ' + (p.pay_symbol || '') + ' tx ' + p.tx_hash;
      document.getElementById('purchases').prepend(li);
    });
  </script>
</body>
</html>
`
