package api

const webUI = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Resistor Time Bridge</title>
<style>
*{box-sizing:border-box;margin:0;padding:0}
body{font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;background:#f5f5f5;color:#333;line-height:1.6}
a{color:#55aa00;text-decoration:none}
a:hover{text-decoration:underline}

/* Header */
.hdr{background:linear-gradient(135deg,#55aa00 0%,#2d5a00 100%);color:#fff;padding:14px 20px;display:flex;align-items:center;justify-content:space-between;position:sticky;top:0;z-index:100}
.hdr h1{font-size:18px;font-weight:600}
.hdr-dot{width:10px;height:10px;border-radius:50%;display:inline-block;margin-left:8px}
.hdr-right{display:flex;align-items:center;font-size:13px;gap:6px}
.dot-green{background:#22c55e}.dot-red{background:#ef4444}.dot-yellow{background:#f59e0b}.dot-gray{background:#9ca3af}
.dot-pulse{animation:pulse 2s ease-in-out infinite}

/* Tab bar */
.tabs{display:flex;border-bottom:2px solid #e5e7eb;background:#fff;padding:0 16px;position:sticky;top:48px;z-index:99}
.tab{padding:12px 20px;cursor:pointer;font-size:14px;font-weight:500;color:#666;border-bottom:2px solid transparent;margin-bottom:-2px;transition:all .2s}
.tab:hover{color:#333}
.tab.active{color:#55aa00;border-bottom-color:#55aa00}

/* Content */
.content{max-width:900px;margin:0 auto;padding:20px}
.page{display:none;animation:fadeIn .3s ease}
.page.active{display:block}

/* Cards */
.card{background:#fff;border-radius:8px;padding:20px;margin-bottom:16px;box-shadow:0 1px 3px rgba(0,0,0,.1)}
.card h2{font-size:16px;margin-bottom:12px;padding-bottom:8px;border-bottom:1px solid #eee}

/* Buttons */
.btn{display:inline-flex;align-items:center;gap:6px;padding:8px 16px;border-radius:6px;border:none;cursor:pointer;font-size:14px;font-weight:500;transition:all .2s;line-height:1.4}
.btn-primary{background:#55aa00;color:#fff}.btn-primary:hover{background:#4a9400}
.btn-secondary{background:#e5e7eb;color:#374151}.btn-secondary:hover{background:#d1d5db}
.btn-sm{padding:5px 10px;font-size:12px}
.btn-row{display:flex;gap:8px;flex-wrap:wrap;margin-top:12px}

/* Badges */
.badge{display:inline-block;padding:2px 10px;border-radius:20px;font-size:12px;font-weight:500}
.badge-green{background:#dcfce7;color:#166534}
.badge-red{background:#fee2e2;color:#991b1b}
.badge-yellow{background:#fef9c3;color:#854d0e}
.badge-blue{background:#dbeafe;color:#1e40af}
.sdot{width:10px;height:10px;border-radius:50%;display:inline-block;margin-right:6px;flex-shrink:0}

/* Hero card */
.hero{padding:24px;display:flex;justify-content:space-between;align-items:center;flex-wrap:wrap;gap:16px}
.hero-status{display:flex;align-items:center;gap:12px}
.hero-dot{width:40px;height:40px;border-radius:50%;flex-shrink:0}
.hero-text h3{font-size:18px;margin:0}
.hero-text p{font-size:13px;color:#666;margin:0}
.hero-info{text-align:right;font-size:13px;color:#666}
.hero-info strong{color:#333;display:block}

/* Transport cards */
.t-card{background:#f9fafb;border-radius:6px;padding:14px;margin-bottom:10px;display:flex;justify-content:space-between;align-items:center;flex-wrap:wrap;gap:8px}
.t-info h4{font-size:14px;display:flex;align-items:center;gap:6px}
.t-info p{font-size:12px;color:#666}

/* Message table */
.msg-row{display:grid;grid-template-columns:80px 1fr 90px 100px;gap:8px;padding:10px 0;border-bottom:1px solid #f0f0f0;font-size:13px;align-items:center}
.msg-row:last-child{border:none}
.msg-hdr{font-weight:600;color:#555;font-size:12px;text-transform:uppercase;letter-spacing:.05em}
.mono{font-family:'SF Mono','Cascadia Code','Courier New',monospace;font-size:12px;color:#666}
.swatch{display:inline-block;width:14px;height:14px;border-radius:3px;border:1px solid #ccc;vertical-align:middle;margin-right:4px}

/* Logs */
.log-container{background:#1a1a2e;border-radius:8px;padding:16px;font-family:'SF Mono','Cascadia Code','Courier New',monospace;font-size:13px;max-height:500px;overflow-y:auto;color:#a0aec0}
.log-entry{padding:2px 0;white-space:pre-wrap;word-break:break-all}
.log-time{color:#55aa00}
.log-info{color:#a0aec0}.log-warn{color:#f59e0b}.log-error{color:#ef4444}
.log-controls{display:flex;gap:8px;margin-bottom:12px;align-items:center;flex-wrap:wrap}
.filter-btn{padding:5px 12px;border-radius:4px;border:1px solid #ddd;background:#fff;cursor:pointer;font-size:12px}
.filter-btn.active{background:#55aa00;color:#fff;border-color:#55aa00}

.empty{text-align:center;padding:40px;color:#888}
.toast{position:fixed;top:60px;right:20px;padding:12px 20px;border-radius:6px;color:#fff;font-size:14px;z-index:200;box-shadow:0 4px 12px rgba(0,0,0,.15)}
.toast-success{background:#22c55e}.toast-error{background:#ef4444}

@keyframes fadeIn{from{opacity:0;transform:translateY(8px)}to{opacity:1;transform:translateY(0)}}
@keyframes pulse{0%,100%{transform:scale(1);opacity:1}50%{transform:scale(1.5);opacity:0}}

@media(max-width:640px){
 .content{padding:12px}
 .hero{flex-direction:column;align-items:flex-start}
 .hero-info{text-align:left}
 .msg-row{grid-template-columns:1fr 1fr}
}
</style>
</head>
<body>

<div class="hdr">
 <h1>Resistor Time Bridge</h1>
 <div class="hdr-right">
  <span id="hdr-status-text">Checking...</span>
  <span id="hdr-dot" class="hdr-dot dot-yellow"></span>
 </div>
</div>

<div class="tabs">
 <div class="tab active" data-page="dashboard" onclick="nav('dashboard')">Dashboard</div>
 <div class="tab" data-page="logs" onclick="nav('logs')">Logs</div>
</div>

<div class="content">
 <div class="page active" id="page-dashboard">
  <div class="card hero">
   <div class="hero-status">
    <span id="dash-dot" class="hero-dot dot-gray"></span>
    <div class="hero-text">
     <h3 id="dash-status-text">Checking...</h3>
     <p id="dash-status-sub"></p>
    </div>
   </div>
   <div class="hero-info">
    <strong id="dash-variant">-</strong>
    <span id="dash-last-url"></span>
   </div>
  </div>

  <div class="card">
   <h2>Watchapp events</h2>
   <div class="btn-row">
    <button class="btn btn-secondary" onclick="sendReady()">Ready</button>
    <button class="btn btn-primary" onclick="openSettings()">Open settings</button>
   </div>
  </div>

  <div class="card">
   <h2>Transports</h2>
   <div id="transport-list"></div>
  </div>

  <div class="card">
   <h2>Sent messages</h2>
   <div id="message-list"></div>
  </div>
 </div>

 <div class="page" id="page-logs">
  <div class="card">
   <div class="log-controls">
    <button class="filter-btn active" onclick="setLogFilter('all', this)">All</button>
    <button class="filter-btn" onclick="setLogFilter('debug', this)">Debug</button>
    <button class="filter-btn" onclick="setLogFilter('info', this)">Info</button>
    <button class="filter-btn" onclick="setLogFilter('warn', this)">Warn</button>
    <button class="filter-btn" onclick="setLogFilter('error', this)">Error</button>
    <button class="btn btn-secondary btn-sm" onclick="clearLogs()">Clear</button>
   </div>
   <div class="log-container" id="log-viewer"></div>
  </div>
 </div>
</div>

<div id="toast-root"></div>

<script>
var currentPage = 'dashboard';
var logFilter = 'all';

function nav(page) {
 currentPage = page;
 document.querySelectorAll('.tab').forEach(function(t) { t.classList.toggle('active', t.dataset.page === page); });
 document.querySelectorAll('.page').forEach(function(p) { p.classList.toggle('active', p.id === 'page-' + page); });
 refresh();
}

function refresh() {
 if (currentPage === 'logs') refreshLogs(); else refreshDashboard();
}

// ============ Dashboard ============
function refreshDashboard() {
 fetch('/api/status').then(function(r){return r.json()}).then(function(data) {
  var dot = document.getElementById('dash-dot');
  var hdot = document.getElementById('hdr-dot');
  var text = document.getElementById('dash-status-text');
  var sub = document.getElementById('dash-status-sub');
  if (data.watch_connected) {
   dot.className = 'hero-dot dot-green dot-pulse';
   hdot.className = 'hdr-dot dot-green';
   text.textContent = 'Watch connected';
   document.getElementById('hdr-status-text').textContent = 'Connected';
  } else if (data.transports_count === 0) {
   dot.className = 'hero-dot dot-gray';
   hdot.className = 'hdr-dot dot-yellow';
   text.textContent = 'No transports';
   document.getElementById('hdr-status-text').textContent = 'Not configured';
  } else {
   dot.className = 'hero-dot dot-red';
   hdot.className = 'hdr-dot dot-red';
   text.textContent = 'Watch disconnected';
   document.getElementById('hdr-status-text').textContent = 'Disconnected';
  }
  sub.textContent = data.transports_count + ' transport(s) configured';
  document.getElementById('dash-variant').textContent = 'Settings page: ' + data.variant;
  document.getElementById('dash-last-url').textContent = data.last_url || '';
 }).catch(function(){});

 fetch('/api/transports').then(function(r){return r.json()}).then(function(data) {
  var list = document.getElementById('transport-list');
  var ts = data.transports || [];
  if (ts.length === 0) {
   list.innerHTML = '<div class="empty">No transports configured. Add one to config.yaml.</div>';
   return;
  }
  var html = '';
  for (var i = 0; i < ts.length; i++) {
   var t = ts[i];
   var sc = t.status.connected ? 'dot-green' : (t.status.reconnecting ? 'dot-yellow' : 'dot-red');
   html += '<div class="t-card"><div class="t-info">';
   html += '<h4><span class="sdot ' + sc + '"></span>' + esc(t.name || t.id) + ' <span class="badge badge-blue">' + esc(t.type) + '</span></h4>';
   html += '<p>' + esc(t.status.last_error || (t.status.connected ? 'Connected' : 'Waiting')) + '</p>';
   html += '</div></div>';
  }
  list.innerHTML = html;
 }).catch(function(){});

 fetch('/api/messages').then(function(r){return r.json()}).then(function(data) {
  var list = document.getElementById('message-list');
  var msgs = data.messages || [];
  if (msgs.length === 0) {
   list.innerHTML = '<div class="empty">No settings sent yet.</div>';
   return;
  }
  var html = '<div class="msg-row msg-hdr"><span>ID</span><span>Colors</span><span>Status</span><span>Time</span></div>';
  for (var i = 0; i < msgs.length; i++) {
   var m = msgs[i];
   var bc = m.status === 'delivered' ? 'badge-green' : (m.status === 'failed' ? 'badge-red' : 'badge-yellow');
   html += '<div class="msg-row">';
   html += '<span class="mono">' + esc(m.id) + '</span>';
   html += '<span>' + swatch(m.fields.BG_COLOR, m.variant) + swatch(m.fields.SILK_COLOR, m.variant) + '<span class="mono">type ' + m.fields.RESISTOR_TYPE + '</span></span>';
   html += '<span class="badge ' + bc + '" title="' + esc(m.error) + '">' + esc(m.status) + '</span>';
   html += '<span style="font-size:12px;color:#888">' + timeAgo(m.created_at) + '</span>';
   html += '</div>';
  }
  list.innerHTML = html;
 }).catch(function(){});
}

// swatch renders a 24-bit color, or a packed 0b11rrggbb one for legacy messages.
function swatch(v, variant) {
 var rgb = v;
 if (variant === 'legacy') {
  rgb = (((v >> 4) & 3) * 0x55) << 16 | (((v >> 2) & 3) * 0x55) << 8 | (v & 3) * 0x55;
 }
 var hex = ('000000' + rgb.toString(16)).slice(-6);
 return '<span class="swatch" style="background:#' + hex + '"></span>';
}

function sendReady() {
 fetch('/api/events/ready', {method: 'POST'}).then(function() { toast('Ready sent', 'success'); });
}

function openSettings() {
 fetch('/api/events/show-configuration', {method: 'POST'}).then(function(r){return r.json()}).then(function(data) {
  if (!data.success) { toast(data.error, 'error'); return; }
  var u = data.url;
  if (u.indexOf('return_to=') >= 0) {
   u = u.split('?')[0] + '?return_to=' + encodeURIComponent('/close?response=');
  }
  window.open(u, '_blank');
  refreshDashboard();
 }).catch(function(){ toast('Network error', 'error'); });
}

// ============ Logs ============
function refreshLogs() {
 var levelParam = logFilter === 'all' ? '' : '?level=' + logFilter;
 fetch('/api/logs' + levelParam).then(function(r){return r.json()}).then(function(data) {
  var viewer = document.getElementById('log-viewer');
  var logs = data.logs || [];
  var html = '';
  for (var i = logs.length - 1; i >= 0; i--) {
   var l = logs[i];
   var ts = l.timestamp ? new Date(l.timestamp).toLocaleString() : '';
   var lc = l.level === 'error' ? 'log-error' : (l.level === 'warn' ? 'log-warn' : 'log-info');
   html += '<div class="log-entry"><span class="log-time">[' + esc(ts) + ']</span> <span class="' + lc + '">' + esc((l.level || 'info').toUpperCase()) + '</span> ' + esc(l.message) + '</div>';
  }
  if (logs.length === 0) html = '<div style="color:#555">No log entries</div>';
  viewer.innerHTML = html;
 }).catch(function(){});
}

function setLogFilter(filter, btn) {
 logFilter = filter;
 document.querySelectorAll('.filter-btn').forEach(function(b) { b.classList.remove('active'); });
 btn.classList.add('active');
 refreshLogs();
}

function clearLogs() {
 fetch('/api/logs', {method: 'DELETE'}).then(refreshLogs);
}

// ============ UI Helpers ============
function toast(msg, type) {
 var el = document.createElement('div');
 el.className = 'toast toast-' + (type || 'success');
 el.textContent = msg;
 document.getElementById('toast-root').appendChild(el);
 setTimeout(function() { el.remove(); }, 4000);
}

function esc(s) {
 if (!s) return '';
 var d = document.createElement('div');
 d.appendChild(document.createTextNode(String(s)));
 return d.innerHTML;
}

function timeAgo(ts) {
 if (!ts) return '-';
 var secs = Math.floor((Date.now() - new Date(ts).getTime()) / 1000);
 if (secs < 5) return 'just now';
 if (secs < 60) return secs + 's ago';
 if (secs < 3600) return Math.floor(secs/60) + 'm ago';
 if (secs < 86400) return Math.floor(secs/3600) + 'h ago';
 return Math.floor(secs/86400) + 'd ago';
}

refresh();
setInterval(refresh, 5000);
</script>
</body>
</html>`
