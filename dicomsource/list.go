package dicomsource

import (
	"context"
	"fmt"
	"io/ioutil"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"google.golang.org/api/iterator"
)

// ListFiles returns the paths of the files directly inside folder whose
// names end in suffix, sorted. folder may be local or a gs:// prefix.
func ListFiles(folder, suffix string, client *storage.Client) ([]string, error) {
	if strings.HasPrefix(folder, "gs://") {
		return listFromGoogleStorage(folder, suffix, client)
	}

	files, err := ioutil.ReadDir(folder)
	if err != nil {
		return nil, pfx.Err(err)
	}

	out := make([]string, 0, len(files))
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), suffix) {
			continue
		}
		out = append(out, JoinPath(folder, file.Name()))
	}
	sort.Strings(out)

	return out, nil
}

func listFromGoogleStorage(folder, suffix string, client *storage.Client) ([]string, error) {
	if client == nil {
		return nil, pfx.Err(fmt.Errorf("%s: no storage client for a gs:// path", folder))
	}

	pathParts := strings.SplitN(strings.TrimPrefix(folder, "gs://"), "/", 2)
	bucket, prefix := pathParts[0], ""
	if len(pathParts) == 2 && pathParts[1] != "" {
		prefix = strings.TrimSuffix(pathParts[1], "/") + "/"
	}

	it := client.Bucket(bucket).Objects(context.Background(), &storage.Query{
		Prefix:    prefix,
		Delimiter: "/",
	})

	var out []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, pfx.Err(err)
		}

		// With a delimiter, sub-folders come back as bare prefixes
		if attrs.Name == "" || !strings.HasSuffix(attrs.Name, suffix) {
			continue
		}
		out = append(out, "gs://"+bucket+"/"+attrs.Name)
	}
	sort.Strings(out)

	return out, nil
}
