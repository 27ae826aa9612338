package capture

// snapshotScript walks every visible element and returns a JSON array of
// RawElement. Flags are derived in Go, not here.
const snapshotScript = `() => {
	const str = (v) => (typeof v === 'string' ? v : '');
	const out = [];
	for (const el of document.querySelectorAll('*')) {
		const cs = window.getComputedStyle(el);
		if (cs.display === 'none' || cs.visibility === 'hidden') continue;
		const r = el.getBoundingClientRect();
		out.push({
			tagName: el.tagName.toLowerCase(),
			id: str(el.id),
			className: str(el.getAttribute('class')),
			text: str(el.innerText).slice(0, 2000),
			href: str(el.href),
			src: str(el.src),
			alt: str(el.getAttribute('alt')),
			type: str(el.getAttribute('type')).toLowerCase(),
			role: str(el.getAttribute('role')),
			ariaLabel: str(el.getAttribute('aria-label')),
			labels: el.labels ? el.labels.length : 0,
			inTable: el.closest('table') !== null,
			rect: {
				x: r.x + window.scrollX,
				y: r.y + window.scrollY,
				width: r.width,
				height: r.height
			},
			styles: {
				color: cs.color,
				backgroundColor: cs.backgroundColor,
				fontSize: cs.fontSize,
				fontFamily: cs.fontFamily,
				lineHeight: cs.lineHeight,
				display: cs.display,
				position: cs.position,
				padding: cs.padding,
				margin: cs.margin,
				width: cs.width
			}
		});
	}
	return JSON.stringify(out);
}`
