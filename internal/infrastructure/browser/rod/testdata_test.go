package rod

const (
	BasicHTML = `<!DOCTYPE html>
<html>
<head><title>Test Page</title></head>
<body>
	<h1>Hello World</h1>
</body>
</html>`

	CandidatesHTML = `<!DOCTYPE html>
<html>
<body style="margin: 0;">
	<a href="/home" id="home" style="display: inline-block; width: 120px; height: 30px;">Home</a>
	<button id="signin" style="width: 120px; height: 30px;">Sign In!</button>
	<button id="hidden" style="display: none;">Hidden</button>
	<input id="q" type="text" style="width: 200px; height: 30px;" />
	<div role="treeitem" id="tree" style="width: 120px; height: 30px;">Node 1</div>
	<div id="plain">Not interactive</div>
	<div style="opacity: 0;">
		<a href="/ghost" id="ghost" style="display: inline-block; width: 120px; height: 30px;">Ghost</a>
	</div>
</body>
</html>`

	ClickHTML = `<!DOCTYPE html>
<html>
<head><title>Before</title></head>
<body>
	<button id="btn" style="width: 120px; height: 30px;">More results</button>
	<script>
		document.getElementById('btn').addEventListener('click', function() {
			document.title = 'After';
		});
	</script>
</body>
</html>`

	RolesHTML = `<!DOCTYPE html>
<html>
<body style="margin: 0;">
	<a href="/home" style="display: block; width: 120px; height: 30px;">Home</a>
	<div role="link" style="width: 120px; height: 30px;">Docs</div>
	<div role="tab" style="width: 120px; height: 30px;">Tab A</div>
	<div role="menuitem" style="width: 120px; height: 30px;">Menu</div>
	<div role="checkbox" style="width: 120px; height: 30px;">Check</div>
	<div role="option" style="width: 120px; height: 30px;">Opt</div>
	<div role="presentation" style="width: 120px; height: 30px;">Layout</div>
</body>
</html>`

	ShiftHTML = `<!DOCTYPE html>
<html>
<body style="margin: 0;">
	<div id="list">
		<a href="/more" style="display: block; width: 120px; height: 30px;">More</a>
		<button style="width: 120px; height: 30px;">Go</button>
	</div>
</body>
</html>`

	OutlineHTML = `<!DOCTYPE html>
<html>
<body style="margin: 0;">
	<a href="/framed" style="display: block; width: 120px; height: 30px; outline: 2px dashed blue;">Framed</a>
	<a href="/plain" style="display: block; width: 120px; height: 30px;">Plain</a>
</body>
</html>`
)
