package stylesheet

const sitemapTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<xsl:stylesheet version="2.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform" xmlns:sitemap="http://www.sitemaps.org/schemas/sitemap/0.9" {{.ExtraNamespace}}>
<xsl:output method="html" doctype-system="about:legacy-compat" encoding="UTF-8" />
<xsl:template match="/">
<html>
<head>
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; color: #333; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 6px 12px; border-bottom: 1px solid #ddd; }
th { background: #f5f5f5; }
a { color: #0073aa; text-decoration: none; }
.meta { color: #777; margin-bottom: 1.5em; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">
<xsl:value-of select="count(sitemap:urlset/sitemap:url)" /> URLs listed.
{{- if .PartOfCollection}}
This sitemap is part of a collection: <a href="{{.IndexURL}}">back to the index</a>.
{{- end}}
</p>
<table>
<tr>
<th>#</th>
<th>URL</th>
{{- if .ShowImages}}
<th>Images</th>
{{- end}}
{{- if .ShowNews}}
<th>Title</th>
{{- end}}
<th>Last Modified</th>
</tr>
<xsl:for-each select="sitemap:urlset/sitemap:url">
<tr>
<td><xsl:value-of select="position()" /></td>
<xsl:variable name="url" select="sitemap:loc" />
<td><a href="{$url}"><xsl:value-of select="sitemap:loc" /></a></td>
{{- if .ShowImages}}
<td><xsl:value-of select="count(image:image)" /></td>
{{- end}}
{{- if .ShowNews}}
<td><xsl:value-of select="news:news/news:title" /></td>
{{- end}}
<td>
<xsl:choose>
<xsl:when test="sitemap:lastmod">
<xsl:value-of select="concat(substring(sitemap:lastmod, 1, 10), '&#160;&#160;@&#160;&#160;', substring(sitemap:lastmod, 12, 5))" />
</xsl:when>
<xsl:otherwise>&#8212;</xsl:otherwise>
</xsl:choose>
</td>
</tr>
</xsl:for-each>
</table>
</body>
</html>
</xsl:template>
</xsl:stylesheet>
`

const indexTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<xsl:stylesheet version="2.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform" xmlns:sitemap="http://www.sitemaps.org/schemas/sitemap/0.9">
<xsl:output method="html" doctype-system="about:legacy-compat" encoding="UTF-8" />
<xsl:template match="/">
<html>
<head>
<title>{{.Title}} Index</title>
<style>
body { font-family: sans-serif; color: #333; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 6px 12px; border-bottom: 1px solid #ddd; }
th { background: #f5f5f5; }
a { color: #0073aa; text-decoration: none; }
.meta { color: #777; margin-bottom: 1.5em; }
</style>
</head>
<body>
<h1>{{.Title}} Index</h1>
<p class="meta"><xsl:value-of select="count(sitemap:sitemapindex/sitemap:sitemap)" /> sitemaps listed.</p>
<table>
<tr>
<th>#</th>
<th>Sitemap</th>
</tr>
<xsl:for-each select="sitemap:sitemapindex/sitemap:sitemap">
<tr>
<td><xsl:value-of select="position()" /></td>
<xsl:variable name="url" select="sitemap:loc" />
<td><a href="{$url}"><xsl:value-of select="sitemap:loc" /></a></td>
</tr>
</xsl:for-each>
</table>
</body>
</html>
</xsl:template>
</xsl:stylesheet>
`
