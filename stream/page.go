package stream

const indexHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Mini Countdown</title>
    <meta charset="utf-8">
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            background: #f5f7fb;
            color: #1f2a3d;
            font-family: 'Inter', 'Arial', sans-serif;
            min-height: 100vh;
            display: flex;
            flex-direction: column;
            align-items: center;
            padding: 24px;
        }
        h1 { font-size: 2em; margin-bottom: 20px; }
        .camera-container { max-width: 900px; width: 100%; position: relative; }
        #camera {
            width: 100%;
            border-radius: 14px;
            background: #000;
            min-height: 420px;
            object-fit: contain;
        }
        .overlay {
            position: absolute;
            top: 12px; left: 12px;
            background: rgba(0, 0, 0, 0.55);
            color: #fff;
            padding: 10px 14px;
            border-radius: 10px;
        }
        .overlay .clock { font-size: 2.6em; font-weight: 700; color: #f5a524; }
        .overlay .status { color: #c9ddff; font-weight: 600; }
        .controls {
            background: #fff;
            border: 1px solid #e5e8ef;
            border-radius: 14px;
            padding: 18px 20px;
            margin-top: 20px;
            width: 100%;
            max-width: 640px;
        }
        .row { display: flex; gap: 10px; align-items: center; margin: 10px 0; flex-wrap: wrap; }
        button {
            padding: 10px 18px;
            border: none;
            border-radius: 8px;
            cursor: pointer;
            font-weight: 700;
            color: #fff;
        }
        .btn-start { background: #4d7cff; }
        .btn-stop { background: #ec5b56; }
        .btn-reset { background: #f5a524; }
        input[type=number], input[type=text] {
            padding: 9px 10px;
            border: 1px solid #d6d9e2;
            border-radius: 8px;
        }
        input[type=text] { flex: 1; min-width: 240px; }
    </style>
</head>
<body>
    <h1>🎉 Mini Countdown 🎉</h1>
    <div class="camera-container">
        <img id="camera" src="/video_feed" alt="Camera Feed">
        <div class="overlay">
            <div class="clock" id="clock">--:--:--</div>
            <div class="status" id="status">Initializing...</div>
        </div>
    </div>
    <div class="controls">
        <div class="row">
            <button class="btn-start" onclick="start()">▶ Start</button>
            <button class="btn-stop" onclick="post('/stop')">⏹ Stop</button>
            <button class="btn-reset" onclick="post('/reset')">↺ Reset</button>
            <input type="number" id="seconds" value="30" min="1" max="3600"> seconds
        </div>
        <div class="row">
            <input type="text" id="music" placeholder="Celebration music URL">
            <button class="btn-start" onclick="setMusic()">Save Music</button>
        </div>
        <div class="row">
            <input type="checkbox" id="speak" onchange="setSpeak()">
            <label for="speak">Speak at 10-second intervals</label>
        </div>
    </div>
    <script>
        function post(path, body) {
            return fetch(path, {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify(body || {})
            }).then(r => r.json());
        }
        function start() {
            post('/start', {seconds: parseInt(document.getElementById('seconds').value)})
                .then(d => { if (!d.success) alert(d.error); });
        }
        function setMusic() {
            post('/music', {url: document.getElementById('music').value.trim()})
                .then(d => { if (!d.success) alert(d.error); });
        }
        function setSpeak() {
            post('/speak-intervals', {enabled: document.getElementById('speak').checked});
        }
        function refresh() {
            fetch('/countdown').then(r => r.json()).then(d => {
                document.getElementById('clock').textContent =
                    d.phase === 'celebrating' ? '🎉🎉🎉' : d.formatted;
                const labels = {
                    idle: 'Idle',
                    waiting: 'Waiting...',
                    final_minute: '⏱ Final minute!',
                    final_ten: '🔥 Final seconds!',
                    celebrating: 'CELEBRATING!',
                    done: 'Done'
                };
                document.getElementById('status').textContent = labels[d.phase] || d.phase;
            }).catch(() => {});
        }
        setInterval(refresh, 1000);
        refresh();
    </script>
</body>
</html>
`
