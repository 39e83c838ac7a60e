package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mixedDiff = `diff --git a/App.tsx b/App.tsx
--- a/App.tsx
+++ b/App.tsx
@@ -1,2 +1,3 @@
 import React from 'react';
+import { View, Text } from 'react-native';
 export default App;
diff --git a/site/page.tsx b/site/page.tsx
--- a/site/page.tsx
+++ b/site/page.tsx
@@ -1,2 +1,3 @@
 import React from 'react';
+export const Page = () => <div>hello</div>;
 export default Page;
`

func TestBucketByExtension(t *testing.T) {
	files := []string{
		"app/Main.kt",
		"app/layout.xml",
		"ios/View.swift",
		"lib/widget.dart",
		"web/styles.css",
		"README.md",
	}
	buckets := Bucket(files, "")

	assert.Equal(t, []string{"app/Main.kt", "app/layout.xml"}, buckets[Android])
	assert.Equal(t, []string{"ios/View.swift"}, buckets[IOS])
	assert.Equal(t, []string{"lib/widget.dart"}, buckets[Flutter])
	assert.Equal(t, []string{"web/styles.css"}, buckets[Web])
	assert.Empty(t, buckets[ReactNative])
}

func TestBucketReactNativeDetection(t *testing.T) {
	buckets := Bucket([]string{"App.tsx", "site/page.tsx"}, mixedDiff)

	assert.Equal(t, []string{"App.tsx"}, buckets[ReactNative])
	assert.Equal(t, []string{"site/page.tsx"}, buckets[Web])
}

func TestPhasesFixedOrder(t *testing.T) {
	buckets := map[string][]string{
		Web:     {"a.html"},
		Android: {"b.kt"},
		Flutter: {"c.dart"},
	}
	phases := Phases(buckets)
	require.Equal(t, []string{Android, Web, Flutter}, phases)
}

func TestPhasesEmpty(t *testing.T) {
	assert.Empty(t, Phases(map[string][]string{}))
}
